package storage

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gitlab.com/timkado/api/buyer-lead-crm/internal/apperrors"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/model"
)

var historyColumns = []string{"id", "lead_id", "changed_by", "changed_at", "diff"}

func TestPostgresRepo_FindHistoryByLead(t *testing.T) {
	repo, mock := newTestLeadRepo(t)
	rows := sqlmock.NewRows(historyColumns).
		AddRow("h-2", testLeadID, testAdminID, storedAt, []byte(`{"status":{"old":"New","new":"Qualified"}}`)).
		AddRow("h-1", testLeadID, testOwnerID, storedAt.Add(-time.Hour), []byte(`{"created":{"old":null,"new":{"fullName":"John Doe"}}}`))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "lead_history" WHERE lead_id = $1 ORDER BY changed_at DESC, id DESC LIMIT $2`)).
		WithArgs(testLeadID, 5).
		WillReturnRows(rows)

	entries, err := repo.FindHistoryByLead(testContext(), testLeadID, 5)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "h-2", entries[0].ID)
	changes, err := entries[0].Changes()
	require.NoError(t, err)
	assert.Equal(t, model.FieldChange{Old: "New", New: "Qualified"}, changes["status"])
	created, err := entries[1].Changes()
	require.NoError(t, err)
	assert.Contains(t, created, model.CreatedDiffKey)
}

func TestPostgresRepo_FindHistoryByLead_Empty(t *testing.T) {
	repo, mock := newTestLeadRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "lead_history" WHERE lead_id = $1`)).
		WillReturnRows(sqlmock.NewRows(historyColumns))

	entries, err := repo.FindHistoryByLead(testContext(), testLeadID, 5)

	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestPostgresRepo_FindHistoryByLead_Error(t *testing.T) {
	repo, mock := newTestLeadRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "lead_history"`)).
		WillReturnError(errors.New("syntax error at or near"))

	_, err := repo.FindHistoryByLead(testContext(), testLeadID, 5)

	assert.ErrorIs(t, err, apperrors.ErrDatabase)
}
