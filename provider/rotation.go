package provider

import (
	"fmt"
	"strings"
	"time"
)

// RotationInterval selects how often a file provider starts a new file.
type RotationInterval string

const (
	RotationNone    RotationInterval = "none"
	RotationDaily   RotationInterval = "daily"
	RotationMonthly RotationInterval = "monthly"
	RotationYearly  RotationInterval = "yearly"
)

func ParseRotationInterval(s string) (RotationInterval, error) {
	switch r := RotationInterval(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return RotationNone, nil
	case RotationNone, RotationDaily, RotationMonthly, RotationYearly:
		return r, nil
	default:
		return "", fmt.Errorf("invalid rotation interval: %q", s)
	}
}

func (r *RotationInterval) UnmarshalText(text []byte) error {
	parsed, err := ParseRotationInterval(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// SplitFileName splits name on its last dot. A name without a dot gets the
// "log" extension; a name starting with its only dot has an empty stem.
func SplitFileName(name string) (stem, ext string) {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return name, "log"
	}
	return name[:i], name[i+1:]
}

// RotatedFileName returns the file name to write to at time t. Files are never
// renamed: a new date component simply produces a new name.
func RotatedFileName(stem, ext string, interval RotationInterval, t time.Time) string {
	var date string
	switch interval {
	case RotationDaily:
		date = t.Format("2006-01-02")
	case RotationMonthly:
		date = t.Format("2006-01")
	case RotationYearly:
		date = t.Format("2006")
	}

	name := stem
	if date != "" {
		if name != "" {
			name += "_"
		}
		name += date
	}

	return name + "." + ext
}
