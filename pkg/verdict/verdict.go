// Package verdict models a single reviewer's QC judgment on an image and the
// rule that reconciles several of them.
//
// A verdict is three-valued: a reviewer may pass an image, fail it, or not
// have looked at it. Reconciliation is false-dominant: one failing review
// fails the image no matter how many reviewers passed it.
package verdict

import (
	"strings"

	"gopkg.in/guregu/null.v3"

	"github.com/agentstation/ppmi500/pkg/errors"
)

// Verdict is a three-valued QC judgment. The zero value is Unknown.
type Verdict uint8

const (
	// Unknown means no reviewer judgment is available.
	Unknown Verdict = iota
	// True means the image passed review.
	True
	// False means the image failed review.
	False
)

// Merge reconciles two verdicts. Unknown yields to the other operand and
// False absorbs True. Merge is commutative and associative.
//
//	Merge(Unknown, x) == x
//	Merge(False, x)   == False
//	Merge(True, True) == True
func Merge(a, b Verdict) Verdict {
	switch {
	case a == False || b == False:
		return False
	case a == True || b == True:
		return True
	default:
		return Unknown
	}
}

// Fold merges any number of verdicts. Fold of nothing is Unknown.
func Fold(vs ...Verdict) Verdict {
	out := Unknown
	for _, v := range vs {
		out = Merge(out, v)
	}
	return out
}

// Parse reads a reviewer cell. Null is Unknown. The accepted codes are
// TRUE/FALSE and PASS/FAIL in any letter case, surrounding whitespace ignored.
// Anything else returns Unknown and an *errors.UnrecognizedCodeError carrying
// the raw value.
func Parse(cell null.String) (Verdict, error) {
	if !cell.Valid {
		return Unknown, nil
	}
	switch strings.ToUpper(strings.TrimSpace(cell.String)) {
	case "TRUE", "PASS":
		return True, nil
	case "FALSE", "FAIL":
		return False, nil
	default:
		return Unknown, &errors.UnrecognizedCodeError{Value: cell.String}
	}
}

// FromBool converts a definite judgment.
func FromBool(pass bool) Verdict {
	if pass {
		return True
	}
	return False
}

// Bool returns the judgment and whether it is known.
func (v Verdict) Bool() (pass, known bool) {
	return v == True, v != Unknown
}

// Known reports whether v carries a judgment.
func (v Verdict) Known() bool { return v != Unknown }

// String renders True and False the way the curated tables spell them; Unknown is empty.
func (v Verdict) String() string {
	switch v {
	case True:
		return "True"
	case False:
		return "False"
	default:
		return ""
	}
}

// NullString renders v as a table cell; Unknown becomes null.
func (v Verdict) NullString() null.String {
	if v == Unknown {
		return null.String{}
	}
	return null.StringFrom(v.String())
}
