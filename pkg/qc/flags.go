package qc

import (
	"strings"

	"gopkg.in/guregu/null.v3"
)

var trueFlags = map[string]bool{
	"true": true,
	"1":    true,
	"1.0":  true,
	"yes":  true,
	"y":    true,
	"x":    true,
}

// FlagTrue reports whether a qcfail_* cell marks the failure reason.
func FlagTrue(cell null.String) bool {
	return cell.Valid && trueFlags[strings.ToLower(strings.TrimSpace(cell.String))]
}

// flagCell renders an aggregated failure flag.
func flagCell(set bool) null.String {
	if !set {
		return null.String{}
	}
	return null.StringFrom("True")
}
