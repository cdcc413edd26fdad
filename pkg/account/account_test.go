package account

import (
	"errors"
	"testing"
	"time"
)

func TestParseProperty(t *testing.T) {
	got, err := ParseProperty(" PostalCode ")
	if err != nil || got != PropertyPostalCode {
		t.Fatalf("ParseProperty = %q, %v", got, err)
	}
	if _, err := ParseProperty("isAdmin"); !errors.Is(err, ErrUnknownProperty) {
		t.Fatalf("expected ErrUnknownProperty, got %v", err)
	}
}

func TestUserApply(t *testing.T) {
	var u User
	if err := u.Apply(PropertyCity, "Lisbon"); err != nil {
		t.Fatalf("apply city: %v", err)
	}
	if err := u.Apply(PropertyAboutMe, 7.5); err != nil {
		t.Fatalf("apply number: %v", err)
	}
	born := time.Date(1990, 4, 1, 0, 0, 0, 0, time.UTC)
	if err := u.Apply(PropertyBirthdate, born); err != nil {
		t.Fatalf("apply birthdate: %v", err)
	}
	if u.City != "Lisbon" || u.AboutMe != "7.5" || u.Birthdate == nil || !u.Birthdate.Equal(born) {
		t.Fatalf("unexpected user %+v", u)
	}
	if err := u.Apply(PropertyBirthdate, "1990-04-01"); err == nil {
		t.Fatal("birthdate should require a time value")
	}
	if err := u.Apply(PropertyBirthdate, nil); err != nil || u.Birthdate != nil {
		t.Fatalf("clearing birthdate: %v %v", err, u.Birthdate)
	}
}

func TestPropertyColumns(t *testing.T) {
	if PropertyAboutMe.Column() != "about_me" || PropertyCity.Column() != "city" {
		t.Fatal("unexpected column names")
	}
	if !PropertyEmail.Credential() || PropertyCity.Credential() {
		t.Fatal("credential classification wrong")
	}
}
