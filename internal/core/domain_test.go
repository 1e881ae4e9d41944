package core

import (
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "2024-02-29" {
		t.Fatalf("got %s", d)
	}
	for _, bad := range []string{"", "2024-13-01", "29/02/2024", "2024-2-1"} {
		if _, err := ParseDate(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func validCertificate() Certificate {
	return Certificate{
		FullName:     "Jane Wanjiru",
		PhoneNumber:  "+254712345678",
		CeremonyDate: NewDate(2024, 3, 9),
		Type:         Baptism,
	}
}

func TestCertificateValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Certificate)
		wantErr string
	}{
		{name: "valid baptism", mutate: func(c *Certificate) {}},
		{name: "missing name", mutate: func(c *Certificate) { c.FullName = "" }, wantErr: "FullName"},
		{name: "missing phone", mutate: func(c *Certificate) { c.PhoneNumber = "" }, wantErr: "PhoneNumber"},
		{name: "bad email", mutate: func(c *Certificate) { c.Email = "not-an-email" }, wantErr: "Email"},
		{name: "unknown type", mutate: func(c *Certificate) { c.Type = "CONFIRMATION" }, wantErr: "Type"},
		{name: "zero ceremony date", mutate: func(c *Certificate) { c.CeremonyDate = Date{} }, wantErr: "CeremonyDate"},
		{
			name:    "dedication without guardian",
			mutate:  func(c *Certificate) { c.Type = Dedication },
			wantErr: "ParentGuardian",
		},
		{
			name: "dedication with guardian",
			mutate: func(c *Certificate) {
				c.Type = Dedication
				c.ParentGuardian = "Mary Atieno"
			},
		},
		{name: "negative reminder count", mutate: func(c *Certificate) { c.ReminderCount = -1 }, wantErr: "ReminderCount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCertificate()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected ok, got %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if _, ok := verr.Fields[tt.wantErr]; !ok {
				t.Fatalf("expected failure on %s, got %v", tt.wantErr, verr)
			}
		})
	}
}

func TestCommunionRecordValidate(t *testing.T) {
	if err := (CommunionRecord{Date: NewDate(2024, 4, 6), ParticipantsCount: 0}).Validate(); err != nil {
		t.Fatalf("zero participants must be allowed: %v", err)
	}
	if err := (CommunionRecord{Date: NewDate(2024, 4, 6), ParticipantsCount: -3}).Validate(); err == nil {
		t.Fatal("expected error for negative participants")
	}
	if err := (CommunionRecord{ParticipantsCount: 3}).Validate(); err == nil {
		t.Fatal("expected error for missing date")
	}
}

func TestContactFor(t *testing.T) {
	c := validCertificate()
	if got := c.ContactFor(ChannelSMS); got != c.PhoneNumber {
		t.Fatalf("sms contact = %q", got)
	}
	if got := c.ContactFor(ChannelWhatsApp); got != c.PhoneNumber {
		t.Fatalf("whatsapp contact = %q", got)
	}
	if got := c.ContactFor(ChannelEmail); got != "" {
		t.Fatalf("email contact should be empty, got %q", got)
	}
}
