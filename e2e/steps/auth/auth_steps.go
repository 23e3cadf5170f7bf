package auth

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (any, error)
	SetAccessToken(token string)
	ClearAccessToken()
	SetUserID(id string)
}

// RegisterSteps registers the registration, login, and session steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &authSteps{tc: tc}

	ctx.Step(`^I register as "([^"]*)" with email "([^"]*)" and role "([^"]*)"$`, steps.register)
	ctx.Step(`^I log in with email "([^"]*)" and password "([^"]*)"$`, steps.login)
	ctx.Step(`^I save the session token$`, steps.saveSessionToken)
	ctx.Step(`^I log out$`, steps.logout)
	ctx.Step(`^I request my profile$`, steps.requestProfile)
	ctx.Step(`^I request my profile without a token$`, steps.requestProfileAnonymously)
}

type authSteps struct {
	tc TestContext
}

func (s *authSteps) register(ctx context.Context, fullName, email, role string) error {
	body := map[string]any{
		"email":     email,
		"password":  "e2e-password",
		"full_name": fullName,
		"role":      role,
	}
	return s.tc.POST("/auth/register", body)
}

func (s *authSteps) login(ctx context.Context, email, password string) error {
	body := map[string]any{
		"email":    email,
		"password": password,
	}
	return s.tc.POST("/auth/login", body)
}

func (s *authSteps) saveSessionToken(ctx context.Context) error {
	token, err := s.tc.GetResponseField("token")
	if err != nil {
		return err
	}
	tokenStr, ok := token.(string)
	if !ok || tokenStr == "" {
		return fmt.Errorf("session token missing from response")
	}
	s.tc.SetAccessToken(tokenStr)

	user, err := s.tc.GetResponseField("user")
	if err != nil {
		return err
	}
	profile, ok := user.(map[string]any)
	if !ok {
		return fmt.Errorf("user profile missing from response")
	}
	id, _ := profile["id"].(string)
	s.tc.SetUserID(id)
	return nil
}

func (s *authSteps) logout(ctx context.Context) error {
	return s.tc.POST("/auth/logout", nil)
}

func (s *authSteps) requestProfile(ctx context.Context) error {
	return s.tc.GET("/auth/me", nil)
}

func (s *authSteps) requestProfileAnonymously(ctx context.Context) error {
	s.tc.ClearAccessToken()
	return s.tc.GET("/auth/me", nil)
}
