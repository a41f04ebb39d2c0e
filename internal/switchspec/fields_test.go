package switchspec

import (
	"errors"
	"testing"
)

func validFields() Fields {
	return Fields{
		Name:           "Gateron Oil King",
		Manufacturer:   "Gateron",
		Type:           SwitchTypeLinear,
		Technology:     TechnologyMechanical,
		ActuationForce: 55,
		BottomOutForce: 65,
		PreTravel:      2.0,
		TotalTravel:    4.0,
		TopHousing:     "Nylon",
		BottomHousing:  "Nylon",
		Stem:           "POM",
	}
}

func TestApplyCopiesOnlyNamedFields(t *testing.T) {
	dst := validFields()
	src := dst
	src.Name = "Gateron Oil Queen"
	src.ActuationForce = 48
	src.Notes = "should not be copied"

	applied := Apply(&dst, src, []string{"name", "actuationForce"})

	if len(applied) != 2 {
		t.Fatalf("expected 2 applied fields, got %v", applied)
	}
	if dst.Name != "Gateron Oil Queen" {
		t.Fatalf("name was not applied")
	}
	if dst.ActuationForce != 48 {
		t.Fatalf("actuationForce was not applied")
	}
	if dst.Notes != "" {
		t.Fatalf("notes must remain untouched, got %q", dst.Notes)
	}
}

func TestApplySkipsUnknownFields(t *testing.T) {
	dst := validFields()
	applied := Apply(&dst, validFields(), []string{"name", "definitelyNotAField"})
	if len(applied) != 1 || applied[0] != "name" {
		t.Fatalf("unexpected applied list: %v", applied)
	}
}

func TestDiffFindsChangedFields(t *testing.T) {
	before := validFields()
	after := before
	after.BottomOutForce = 70
	after.StemColor = "Red"

	changed := Diff(before, after)
	if len(changed) != 2 {
		t.Fatalf("expected 2 changed fields, got %v", changed)
	}
	want := map[string]bool{"bottomOutForce": true, "stemColor": true}
	for _, name := range changed {
		if !want[name] {
			t.Fatalf("unexpected changed field %q", name)
		}
	}
}

func TestDiffIdenticalFieldsIsEmpty(t *testing.T) {
	if changed := Diff(validFields(), validFields()); len(changed) != 0 {
		t.Fatalf("expected no changes, got %v", changed)
	}
}

func TestValidateBounds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Fields)
	}{
		{name: "empty-name", mutate: func(f *Fields) { f.Name = "  " }},
		{name: "force-too-high", mutate: func(f *Fields) { f.ActuationForce = 900 }},
		{name: "negative-travel", mutate: func(f *Fields) { f.PreTravel = -1 }},
		{name: "unknown-type", mutate: func(f *Fields) { f.Type = "BOUNCY" }},
		{name: "unknown-technology", mutate: func(f *Fields) { f.Technology = "STEAM" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := validFields()
			tt.mutate(&fields)
			if err := fields.Validate(); !errors.Is(err, ErrInvalidField) {
				t.Fatalf("expected ErrInvalidField, got %v", err)
			}
		})
	}
}

func TestValidateAcceptsWellFormedFields(t *testing.T) {
	if err := validFields().Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestValidateImageURLRejectsInternalTargets(t *testing.T) {
	tests := []string{
		"ftp://example.com/switch.png",
		"http://localhost/switch.png",
		"http://127.0.0.1/switch.png",
		"http://10.0.0.8/switch.png",
		"http://192.168.1.20/switch.png",
		"http://169.254.169.254/latest/meta-data",
		"http://db.internal/switch.png",
	}
	for _, raw := range tests {
		if err := ValidateImageURL(raw); !errors.Is(err, ErrUnsafeImageURL) {
			t.Fatalf("expected %q to be rejected, got %v", raw, err)
		}
	}
}

func TestValidateImageURLAcceptsPublicHosts(t *testing.T) {
	if err := ValidateImageURL("https://images.example.com/oil-king.jpg"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
