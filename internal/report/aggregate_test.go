package report

import (
	"reflect"
	"testing"
	"time"

	"churchclerk/internal/core"
)

func cert(t core.CertificateType, y, m, d int) core.Certificate {
	c := core.Certificate{
		FullName:     "Member",
		PhoneNumber:  "+254700000000",
		CeremonyDate: core.NewDate(y, m, d),
		Type:         t,
	}
	if t == core.Dedication {
		c.ParentGuardian = "Parent"
	}
	return c
}

func finalized(tt core.TransferType, y, m, d int) core.MemberTransfer {
	done := core.NewDate(y, m, d)
	return core.MemberTransfer{Type: tt, Stage: core.StageFinalized, DateCompleted: &done}
}

func TestAggregateBaptismsByMonth(t *testing.T) {
	certs := []core.Certificate{
		cert(core.Baptism, 2024, 2, 17),
		cert(core.Baptism, 2024, 1, 5),
		cert(core.Baptism, 2024, 2, 3),
		cert(core.Baptism, 2024, 4, 1), // outside
	}
	s := Aggregate(core.NewPeriod("2024-01-01", "2024-03-31"), certs, nil, nil)

	want := []core.MonthCount{
		{Month: time.January, Name: "January", Count: 1},
		{Month: time.February, Name: "February", Count: 2},
	}
	if !reflect.DeepEqual(s.Baptisms, want) {
		t.Fatalf("baptisms = %+v, want %+v", s.Baptisms, want)
	}
	if s.TotalBaptisms() != 3 {
		t.Fatalf("total baptisms = %d, want 3", s.TotalBaptisms())
	}
	if len(s.Dedications) != 0 || s.TotalDedications() != 0 {
		t.Fatalf("expected no dedications, got %+v", s.Dedications)
	}
}

func TestAggregateMergesYearsAndOrdersMonths(t *testing.T) {
	certs := []core.Certificate{
		cert(core.Dedication, 2023, 12, 24),
		cert(core.Dedication, 2022, 3, 1),
		cert(core.Dedication, 2023, 3, 8),
		cert(core.Baptism, 2021, 7, 4),
	}
	s := Aggregate(core.Period{}, certs, nil, nil)

	want := []core.MonthCount{
		{Month: time.March, Name: "March", Count: 2},
		{Month: time.December, Name: "December", Count: 1},
	}
	if !reflect.DeepEqual(s.Dedications, want) {
		t.Fatalf("dedications = %+v, want %+v", s.Dedications, want)
	}
	if s.TotalBaptisms() != 1 {
		t.Fatalf("total baptisms = %d", s.TotalBaptisms())
	}
}

func TestAggregateTransfers(t *testing.T) {
	processing := core.MemberTransfer{Type: core.TransferIn, Stage: core.StageProcessing}
	transfers := []core.MemberTransfer{
		finalized(core.TransferIn, 2024, 2, 10),
		finalized(core.TransferIn, 2024, 3, 31),
		finalized(core.TransferOut, 2024, 1, 1),
		finalized(core.TransferOut, 2024, 6, 1), // outside
		processing,
	}

	tests := []struct {
		name    string
		period  core.Period
		in, out int
	}{
		{name: "bounded", period: core.NewPeriod("2024-01-01", "2024-03-31"), in: 2, out: 1},
		{name: "all time", period: core.Period{}, in: 2, out: 2},
		{name: "empty window", period: core.NewPeriod("2025-01-01", "2025-12-31")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Aggregate(tt.period, nil, transfers, nil)
			if s.TransfersIn != tt.in || s.TransfersOut != tt.out {
				t.Fatalf("in=%d out=%d, want in=%d out=%d", s.TransfersIn, s.TransfersOut, tt.in, tt.out)
			}
		})
	}
}

func TestAggregateCommunion(t *testing.T) {
	period := core.NewPeriod("2024-01-01", "2024-03-31")
	if got := Aggregate(period, nil, nil, nil).CommunionParticipants; got != 0 {
		t.Fatalf("no records should sum to 0, got %d", got)
	}

	records := []core.CommunionRecord{
		{Date: core.NewDate(2024, 1, 6), ParticipantsCount: 120},
		{Date: core.NewDate(2024, 3, 30), ParticipantsCount: 98},
		{Date: core.NewDate(2024, 4, 6), ParticipantsCount: 500},
	}
	if got := Aggregate(period, nil, nil, records).CommunionParticipants; got != 218 {
		t.Fatalf("participants = %d, want 218", got)
	}
}

func TestAggregateDeterministic(t *testing.T) {
	certs := []core.Certificate{
		cert(core.Baptism, 2024, 5, 1),
		cert(core.Dedication, 2024, 2, 1),
		cert(core.Baptism, 2024, 1, 1),
	}
	first := Aggregate(core.Period{}, certs, nil, nil)
	for i := 0; i < 20; i++ {
		if got := Aggregate(core.Period{}, certs, nil, nil); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %+v vs %+v", i, got, first)
		}
	}
}
