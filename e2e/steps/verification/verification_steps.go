package verification

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string, headers map[string]string) error
	AdminGET(path string) error
	GetResponseField(field string) (any, error)
	SetRequestID(id string)
	GetRequestID() string
	GetIdentityID() string
	GetUserID() string
}

// RegisterSteps registers the verification request steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &verificationSteps{tc: tc}

	ctx.Step(`^I request verification of type "([^"]*)"$`, steps.createRequest)
	ctx.Step(`^I save the verification request id$`, steps.saveRequestID)
	ctx.Step(`^I list my verification requests$`, steps.listRequests)
	ctx.Step(`^I respond to the verification request with "([^"]*)"$`, steps.respond)
	ctx.Step(`^an admin lists all verification requests$`, steps.adminList)
}

type verificationSteps struct {
	tc TestContext
}

func (s *verificationSteps) createRequest(ctx context.Context, verificationType string) error {
	body := map[string]any{
		"user_id":           s.tc.GetUserID(),
		"identity_id":       s.tc.GetIdentityID(),
		"verification_type": verificationType,
		"message":           "submitted during end-to-end run",
	}
	return s.tc.POST("/verification-requests", body)
}

func (s *verificationSteps) saveRequestID(ctx context.Context) error {
	id, err := s.tc.GetResponseField("id")
	if err != nil {
		return err
	}
	idStr, ok := id.(string)
	if !ok || idStr == "" {
		return fmt.Errorf("verification request id missing from response")
	}
	s.tc.SetRequestID(idStr)
	return nil
}

func (s *verificationSteps) listRequests(ctx context.Context) error {
	return s.tc.GET("/verification-requests", nil)
}

func (s *verificationSteps) respond(ctx context.Context, status string) error {
	return s.tc.POST("/verification-requests/"+s.tc.GetRequestID()+"/respond", map[string]any{
		"status": status,
	})
}

func (s *verificationSteps) adminList(ctx context.Context) error {
	return s.tc.AdminGET("/admin/verification-requests")
}
