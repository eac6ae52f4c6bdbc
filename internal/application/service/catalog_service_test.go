package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/travel-reimbursement/internal/application/port/porttest"
	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
)

func TestCountryService_Import(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewCountryService(f.store.Countries(), f.store.Reports(), f.store, "LU", porttest.Logger{})

	n, err := svc.ImportCountries(ctx, []*entity.Country{
		{Code: "DE", Names: map[string]string{"de": "Deutschland"}, Currency: "EUR"},
		{Code: "MC", LumpSumsFrom: "FR"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	de, err := svc.Get(ctx, "DE")
	require.NoError(t, err)
	assert.Equal(t, "Deutschland", de.Name("de"))
	assert.Len(t, de.LumpSums, 1, "existing lump sums survive a master data import")

	valid := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	n, err = svc.ImportLumpSums(ctx, map[string][]entity.LumpSumSet{
		"DE": {{ValidFrom: valid, LumpSumRates: entity.LumpSumRates{Catering8: 14, Catering24: 28, Overnight: 20}}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	de, err = svc.Get(ctx, "DE")
	require.NoError(t, err)
	require.Len(t, de.LumpSums, 2)
	assert.Equal(t, valid, de.LumpSums[1].ValidFrom)

	_, err = svc.ImportLumpSums(ctx, map[string][]entity.LumpSumSet{"ZZ": {{ValidFrom: valid}}})
	assert.True(t, entity.IsValidation(err))

	table, err := svc.Table(ctx)
	require.NoError(t, err)
	rates, err := table.Rates("MC", "", valid)
	require.NoError(t, err)
	assert.Equal(t, 32.0, rates.Catering24)
}

func TestCountryService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewCountryService(f.store.Countries(), f.store.Reports(), f.store, "LU", porttest.Logger{})

	_, err := f.reports.Create(ctx, alice, berlinParis())
	require.NoError(t, err)

	err = svc.Delete(ctx, "FR")
	var refErr *entity.ReferentialIntegrityError
	require.True(t, errors.As(err, &refErr))
	assert.Equal(t, "country", refErr.Entity)

	require.NoError(t, f.store.Countries().Upsert(ctx, &entity.Country{Code: "MC", LumpSumsFrom: "LU"}))
	assert.True(t, entity.IsNotAllowed(svc.Delete(ctx, "LU")))

	require.NoError(t, svc.Delete(ctx, "MC"))
	_, err = svc.Get(ctx, "MC")
	assert.True(t, entity.IsNotFound(err))
}

func TestProjectService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewProjectService(f.store.Projects(), f.store.Reports(), porttest.Logger{})

	_, err := svc.Create(ctx, "  ", "blank")
	assert.True(t, entity.IsValidation(err))

	p, err := svc.Create(ctx, " P-100 ", "Research")
	require.NoError(t, err)
	assert.Equal(t, "P-100", p.Identifier)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	r := expenseReport(10)
	r.Project = p.ID
	_, err = f.reports.Create(ctx, alice, r)
	require.NoError(t, err)

	err = svc.Delete(ctx, p.ID)
	var refErr *entity.ReferentialIntegrityError
	require.True(t, errors.As(err, &refErr))
	assert.Equal(t, 1, refErr.Count)

	other, err := svc.Create(ctx, "P-200", "Teaching")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, other.ID))
	_, err = svc.Get(ctx, other.ID)
	assert.True(t, entity.IsNotFound(err))
}

func TestReceiptService(t *testing.T) {
	ctx := context.Background()
	files := porttest.NewFiles()
	svc := NewReceiptService(files, 64, []string{"application/pdf", "image/png"}, porttest.Logger{})

	pdf := []byte("%PDF-1.4\n%test receipt\n")
	ref, err := svc.Upload(ctx, "../../taxi.pdf", pdf)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", ref.MimeType)
	assert.Equal(t, "taxi.pdf", ref.Name)
	assert.Equal(t, int64(len(pdf)), ref.Size)
	assert.True(t, files.Exists(ctx, ReceiptPath(ref.ID)))

	content, err := svc.Read(ctx, ref.ID)
	require.NoError(t, err)
	assert.Equal(t, pdf, content)

	_, err = svc.Upload(ctx, "notes.txt", []byte("plain text"))
	assert.True(t, entity.IsValidation(err))

	_, err = svc.Upload(ctx, "empty.pdf", nil)
	assert.True(t, entity.IsValidation(err))

	_, err = svc.Upload(ctx, "big.pdf", append(pdf, make([]byte, 64)...))
	assert.True(t, entity.IsValidation(err))

	require.NoError(t, svc.Delete(ctx, ref.ID))
	_, err = svc.Read(ctx, ref.ID)
	assert.True(t, entity.IsNotFound(err))
}

func TestReceiptService_AcceptsAnythingWithoutList(t *testing.T) {
	svc := NewReceiptService(porttest.NewFiles(), 0, nil, porttest.Logger{})
	ref, err := svc.Upload(context.Background(), "notes.txt", []byte("plain text"))
	require.NoError(t, err)
	assert.Contains(t, ref.MimeType, "text/plain")
}

func TestProjection(t *testing.T) {
	report := expenseReport(10)
	report.ID = "r1"

	p := ParseProjection(" name, state ,")
	assert.Equal(t, []string{"name", "state"}, p.Include)
	fields, err := p.Apply(report)
	require.NoError(t, err)
	assert.Len(t, fields, 3)
	assert.Equal(t, "r1", fields["id"])
	assert.Equal(t, "Office supplies", fields["name"])

	p = ParseProjection("-expenseReport,-id")
	fields, err = p.Apply(report)
	require.NoError(t, err)
	assert.NotContains(t, fields, "expenseReport")
	assert.Contains(t, fields, "id")
	assert.Contains(t, fields, "kind")

	assert.True(t, ParseProjection("").IsZero())
	assert.True(t, ParseProjection("-").IsZero())
}

func TestAccess(t *testing.T) {
	r := &entity.Report{Kind: entity.KindTrip, Owner: "alice", Project: "p1", State: "appliedFor"}
	approver := entity.Actor{ID: "ann", Grants: []entity.Grant{{Access: "approve/travel", Projects: []string{"p1"}}}}
	otherProject := entity.Actor{ID: "oz", Grants: []entity.Grant{{Access: "approve/travel", Projects: []string{"p2"}}}}

	assert.True(t, CanRead(alice, r))
	assert.True(t, CanRead(approver, r))
	assert.False(t, CanRead(otherProject, r))
	assert.False(t, CanRead(bob, r))

	assert.True(t, CanEdit(alice, r))
	assert.False(t, CanEdit(approver, r))

	r.State = "underExamination"
	assert.False(t, CanEdit(alice, r))
	assert.True(t, CanEdit(examiner, r))

	r.Editor = "bob"
	r.State = "approved"
	assert.True(t, CanEdit(bob, r), "delegated editor")

	r.Historic = true
	assert.False(t, CanEdit(admin, r))
}
