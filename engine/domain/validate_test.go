package domain

import (
	"errors"
	"testing"
)

func TestNormalizeEntityName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"  MIT  ", "MIT"},
		{"Acme   Corp", "Acme Corp"},
		{"\tTabbed\tName\n", "Tabbed Name"},
		{"", ""},
	}
	for _, tt := range cases {
		if got := NormalizeEntityName(tt.in); got != tt.want {
			t.Errorf("NormalizeEntityName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateEntity_Valid(t *testing.T) {
	e := Entity{Name: "MIT", Type: "ORG", Description: "a university"}
	if err := ValidateEntity(e, DefaultEntityNameMaxLength, DefaultEntityDescMaxLength); err != nil {
		t.Errorf("expected valid, got %v", err)
	}
}

func TestValidateEntity_EmptyName(t *testing.T) {
	e := Entity{Name: "   "}
	err := ValidateEntity(e, DefaultEntityNameMaxLength, DefaultEntityDescMaxLength)
	if !errors.Is(err, ErrEmptyEntityName) {
		t.Errorf("expected ErrEmptyEntityName, got %v", err)
	}
}

func TestValidateEntity_NameTooLong(t *testing.T) {
	longName := ""
	for i := 0; i < 600; i++ {
		longName += "a"
	}
	err := ValidateEntity(Entity{Name: longName}, DefaultEntityNameMaxLength, DefaultEntityDescMaxLength)
	if !errors.Is(err, ErrEntityNameTooLong) {
		t.Errorf("expected ErrEntityNameTooLong, got %v", err)
	}
}

func TestValidateEntity_DescTooLong(t *testing.T) {
	longDesc := ""
	for i := 0; i < 1200; i++ {
		longDesc += "a"
	}
	err := ValidateEntity(Entity{Name: "X", Description: longDesc}, DefaultEntityNameMaxLength, DefaultEntityDescMaxLength)
	if !errors.Is(err, ErrEntityDescTooLong) {
		t.Errorf("expected ErrEntityDescTooLong, got %v", err)
	}
}

func TestValidateRelation_Valid(t *testing.T) {
	r := Relation{SrcName: "Acme", TgtName: "Widgets Inc"}
	if err := ValidateRelation(r); err != nil {
		t.Errorf("expected valid, got %v", err)
	}
}

func TestValidateRelation_EmptyEndpoint(t *testing.T) {
	err := ValidateRelation(Relation{SrcName: "", TgtName: "Acme"})
	if !errors.Is(err, ErrEmptyRelationEndpoint) {
		t.Errorf("expected ErrEmptyRelationEndpoint, got %v", err)
	}
}

func TestValidateRelation_SelfLoop(t *testing.T) {
	err := ValidateRelation(Relation{SrcName: "Acme", TgtName: "acme"})
	if !errors.Is(err, ErrSelfReferentialRelation) {
		t.Errorf("expected ErrSelfReferentialRelation, got %v", err)
	}
}

func TestValidationError_Unwrap(t *testing.T) {
	ve := NewValidationError("name", "", ErrEmptyEntityName)
	if !errors.Is(ve, ErrEmptyEntityName) {
		t.Errorf("Unwrap should expose ErrEmptyEntityName")
	}
	var target *ValidationError
	if !errors.As(ve, &target) {
		t.Errorf("errors.As should work for *ValidationError")
	}
	if target.Field != "name" {
		t.Errorf("expected field=name, got %s", target.Field)
	}
}
