package integration_test

import (
	"encoding/json"
	"strings"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"gitlab.com/timkado/api/buyer-lead-crm/internal/apperrors"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/model"
)

// LeadIntegrationSuite exercises the lead service against real PostgreSQL and JetStream.
type LeadIntegrationSuite struct {
	BaseIntegrationSuite
}

func (s *LeadIntegrationSuite) TestCreateUpdateHistory() {
	lead, err := s.Service.CreateLead(s.Ctx, ownerIdentity, leadInput("Asha Verma", "9876543210", "Mohali"))
	s.Require().NoError(err)
	s.Equal("New", lead.Status)
	s.Equal(ownerIdentity.UserID, lead.OwnerID)

	token := lead.UpdatedAt.Format(time.RFC3339Nano)
	updated, err := s.Service.UpdateLead(s.Ctx, ownerIdentity, model.LeadUpdateInput{
		ID:        lead.ID,
		UpdatedAt: &token,
		LeadInput: model.LeadInput{Status: model.StringPtr("Qualified"), Notes: model.StringPtr("Wants east facing")},
	})
	s.Require().NoError(err)
	s.Equal("Qualified", updated.Status)
	s.True(updated.UpdatedAt.After(lead.UpdatedAt))

	history, err := s.Service.GetHistory(s.Ctx, lead.ID, 0)
	s.Require().NoError(err)
	s.Require().Len(history, 2)

	var diff model.FieldDiff
	s.Require().NoError(json.Unmarshal(history[0].Diff, &diff))
	s.Equal("New", diff["status"].Old)
	s.Equal("Qualified", diff["status"].New)
	s.Contains(string(history[1].Diff), model.CreatedDiffKey)
}

func (s *LeadIntegrationSuite) TestStaleTokenConflicts() {
	lead, err := s.Service.CreateLead(s.Ctx, ownerIdentity, leadInput("Ravi Kumar", "9876500000", "Zirakpur"))
	s.Require().NoError(err)
	stale := lead.UpdatedAt.Format(time.RFC3339Nano)

	_, err = s.Service.UpdateLead(s.Ctx, ownerIdentity, model.LeadUpdateInput{
		ID: lead.ID, UpdatedAt: &stale, LeadInput: model.LeadInput{Notes: model.StringPtr("first")},
	})
	s.Require().NoError(err)

	_, err = s.Service.UpdateLead(s.Ctx, ownerIdentity, model.LeadUpdateInput{
		ID: lead.ID, UpdatedAt: &stale, LeadInput: model.LeadInput{Notes: model.StringPtr("second")},
	})
	s.True(apperrors.IsConflictError(err), "expected conflict, got %v", err)

	current, err := s.Service.GetLead(s.Ctx, lead.ID)
	s.Require().NoError(err)
	s.Equal("first", *current.Notes)
}

func (s *LeadIntegrationSuite) TestOwnershipRules() {
	lead, err := s.Service.CreateLead(s.Ctx, ownerIdentity, leadInput("Meera Shah", "9876511111", "Panchkula"))
	s.Require().NoError(err)

	_, err = s.Service.UpdateLead(s.Ctx, otherIdentity, model.LeadUpdateInput{
		ID: lead.ID, LeadInput: model.LeadInput{Notes: model.StringPtr("hijack")},
	})
	s.True(apperrors.IsForbiddenError(err))
	s.True(apperrors.IsForbiddenError(s.Service.DeleteLead(s.Ctx, otherIdentity, lead.ID)))

	s.Require().NoError(s.Service.DeleteLead(s.Ctx, adminIdentity, lead.ID))
	s.Equal(0, s.CountRows("SELECT COUNT(*) FROM lead_history WHERE lead_id = $1", lead.ID))

	_, err = s.Service.GetLead(s.Ctx, lead.ID)
	s.True(apperrors.IsNotFoundError(err))
}

func (s *LeadIntegrationSuite) TestListSearchAndStats() {
	for _, in := range []model.LeadInput{
		leadInput("Anil Kapoor", "9000000001", "Mohali"),
		leadInput("Sunita Rao", "9000000002", "Mohali"),
		leadInput("Karan 100%", "9000000003", "Chandigarh"),
	} {
		_, err := s.Service.CreateLead(s.Ctx, ownerIdentity, in)
		s.Require().NoError(err)
	}
	_, err := s.Service.CreateLead(s.Ctx, otherIdentity, leadInput("Other Owner", "9000000004", "Mohali"))
	s.Require().NoError(err)

	page, err := s.Service.ListLeads(s.Ctx, model.ListParams{City: "Mohali", SortBy: "fullName", SortOrder: "asc", Limit: "2"})
	s.Require().NoError(err)
	s.Equal(int64(3), page.Total)
	s.Equal(2, page.TotalPages)
	s.Require().Len(page.Data, 2)
	s.Equal("Anil Kapoor", page.Data[0].FullName)

	page, err = s.Service.ListLeads(s.Ctx, model.ListParams{Search: "100%"})
	s.Require().NoError(err)
	s.Require().Len(page.Data, 1)
	s.Equal("Karan 100%", page.Data[0].FullName)

	page, err = s.Service.ListLeads(s.Ctx, model.ListParams{OwnerID: otherIdentity.UserID})
	s.Require().NoError(err)
	s.Equal(int64(1), page.Total)

	stats, err := s.Service.GetStats(s.Ctx, ownerIdentity.UserID)
	s.Require().NoError(err)
	s.Equal(int64(3), stats.Total)
	s.Equal(int64(3), stats.ByStatus["New"])
	s.Equal(int64(0), stats.ByStatus["Dropped"])
}

func (s *LeadIntegrationSuite) TestImportIsAllOrNothing() {
	bad := csvRow("Bad Phone", "12")
	_, err := s.Service.ImportLeads(s.Ctx, ownerIdentity, strings.NewReader(csvOf(
		csvRow("Row One", "9811111111"),
		bad,
		csvRow("Row Three", "9833333333"),
	)))

	var rejected *apperrors.ImportRejectedError
	s.Require().ErrorAs(err, &rejected)
	s.Require().Len(rejected.Invalid, 1)
	s.Equal(2, rejected.Invalid[0].Row)
	s.Equal(2, rejected.ValidCount)
	s.Equal(0, s.CountRows("SELECT COUNT(*) FROM leads"))

	result, err := s.Service.ImportLeads(s.Ctx, ownerIdentity, strings.NewReader(csvOf(
		csvRow("Row One", "9811111111"),
		csvRow("Row Three", "9833333333"),
	)))
	s.Require().NoError(err)
	s.Equal(2, result.Imported)
	s.Equal(2, s.CountRows("SELECT COUNT(*) FROM leads WHERE owner_id = $1", ownerIdentity.UserID))
	s.Equal([]string{"vip"}, result.Leads[0].TagList())
}

func (s *LeadIntegrationSuite) TestExportRoundTrips() {
	_, err := s.Service.CreateLead(s.Ctx, ownerIdentity, leadInput("Export Me", "9822222222", "Mohali"))
	s.Require().NoError(err)

	var buf strings.Builder
	n, err := s.Service.ExportLeads(s.Ctx, model.ListParams{City: "Mohali"}, &buf)
	s.Require().NoError(err)
	s.Equal(1, n)

	_, err = s.Service.ImportLeads(s.Ctx, otherIdentity, strings.NewReader(buf.String()))
	s.Require().NoError(err)
	s.Equal(2, s.CountRows("SELECT COUNT(*) FROM leads WHERE full_name = $1", "Export Me"))
}

func (s *LeadIntegrationSuite) TestEventsReachTheStream() {
	nc, err := natsgo.Connect(s.NATSURL, natsgo.Name("integration-test-subscriber"))
	s.Require().NoError(err)
	defer nc.Close()
	js, err := nc.JetStream()
	s.Require().NoError(err)

	sub, err := js.SubscribeSync(testSubjectPrefix+".created", natsgo.DeliverNew())
	s.Require().NoError(err)
	defer func() { _ = sub.Unsubscribe() }()

	lead, err := s.Service.CreateLead(s.Ctx, ownerIdentity, leadInput("Evented Lead", "9844444444", "Mohali"))
	s.Require().NoError(err)

	msg, err := sub.NextMsg(5 * time.Second)
	s.Require().NoError(err)
	s.NotEmpty(msg.Header.Get(natsgo.MsgIdHdr))

	var event model.LeadEvent
	s.Require().NoError(json.Unmarshal(msg.Data, &event))
	s.Equal(model.V1LeadsCreated, event.Type)
	s.Equal([]string{lead.ID}, event.LeadIDs)
	s.Equal(ownerIdentity.UserID, event.ActorID)
}
