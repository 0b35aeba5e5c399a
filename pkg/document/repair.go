package document

import (
	"errors"
	"slices"
)

// RepairResult is the outcome of Repair.
type RepairResult struct {
	// Document is the repaired document. It is always a copy; the input is
	// never modified.
	Document *Document
	// Modified is true when any section was filled in from the seed.
	Modified bool
	// Missing lists required sections that were absent.
	Missing []string
	// Malformed lists required sections that were present but failed their
	// shape check and were replaced by the seed's version.
	Malformed []string
}

// Repair fills absent or malformed required sections from the seed. Sections
// the input already has win over the seed; a malformed section counts as
// absent. Extra sections are kept untouched.
func Repair(raw *Document) RepairResult {
	res := RepairResult{Missing: raw.Missing()}

	if err := checkHome(raw); isMalformed(err) {
		res.Malformed = append(res.Malformed, SectionHome)
	}
	if err := checkNav(raw); isMalformed(err) {
		res.Malformed = append(res.Malformed, SectionNav)
	}

	if len(res.Missing) == 0 && len(res.Malformed) == 0 {
		res.Document = raw.Clone()
		return res
	}

	top := raw.Clone()
	for _, name := range res.Malformed {
		top.Delete(name)
	}
	res.Document = mergeOver(Seed(), top)
	res.Modified = true
	return res
}

// Validate performs the minimal shape check applied to snapshots: every
// required section must be present. It does not repair.
func Validate(d *Document) error {
	if missing := d.Missing(); len(missing) > 0 {
		return &MissingSectionsError{Sections: missing}
	}
	return nil
}

// Check runs the full invariant check: required sections present, a non-empty
// hero title and a non-empty navigation list.
func Check(d *Document) error {
	var errs []error
	if err := Validate(d); err != nil {
		errs = append(errs, err)
	}
	for _, check := range []func(*Document) error{checkHome, checkNav} {
		if err := check(d); isMalformed(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Sections returns every repaired section name, missing ones first.
func (r RepairResult) Sections() []string {
	return slices.Concat(r.Missing, r.Malformed)
}

func isMalformed(err error) bool {
	var m *MalformedSectionError
	return errors.As(err, &m)
}
