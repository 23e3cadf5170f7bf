package identity

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	PATCH(path string, body any) error
	GET(path string, headers map[string]string) error
	AdminPOST(path string, body any) error
	GetResponseField(field string) (any, error)
	SetIdentityID(id string)
	GetIdentityID() string
}

// RegisterSteps registers the identity lifecycle steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &identitySteps{tc: tc}

	ctx.Step(`^I submit an identity for "([^"]*)" with document number "([^"]*)"$`, steps.submitIdentity)
	ctx.Step(`^I save the identity id$`, steps.saveIdentityID)
	ctx.Step(`^I fetch my identity$`, steps.fetchMyIdentity)
	ctx.Step(`^I update my identity full name to "([^"]*)"$`, steps.updateFullName)
	ctx.Step(`^I try to patch my identity status to "([^"]*)"$`, steps.patchStatus)
	ctx.Step(`^an admin sets my identity status to "([^"]*)"$`, steps.adminSetStatus)
}

type identitySteps struct {
	tc TestContext
}

func (s *identitySteps) submitIdentity(ctx context.Context, fullName, idNumber string) error {
	body := map[string]any{
		"full_name":     fullName,
		"date_of_birth": "1990-01-01",
		"id_number":     idNumber,
		"document_urls": []string{"https://docs.example.com/passport.pdf"},
	}
	return s.tc.POST("/identities", body)
}

func (s *identitySteps) saveIdentityID(ctx context.Context) error {
	id, err := s.tc.GetResponseField("id")
	if err != nil {
		return err
	}
	idStr, ok := id.(string)
	if !ok || idStr == "" {
		return fmt.Errorf("identity id missing from response")
	}
	s.tc.SetIdentityID(idStr)
	return nil
}

func (s *identitySteps) fetchMyIdentity(ctx context.Context) error {
	return s.tc.GET("/identities/me", nil)
}

func (s *identitySteps) updateFullName(ctx context.Context, fullName string) error {
	return s.tc.PATCH("/identities/"+s.tc.GetIdentityID(), map[string]any{
		"full_name": fullName,
	})
}

func (s *identitySteps) patchStatus(ctx context.Context, status string) error {
	return s.tc.PATCH("/identities/"+s.tc.GetIdentityID(), map[string]any{
		"status": status,
	})
}

func (s *identitySteps) adminSetStatus(ctx context.Context, status string) error {
	return s.tc.AdminPOST("/admin/identities/"+s.tc.GetIdentityID()+"/status", map[string]any{
		"status": status,
	})
}
