package e2e

import (
	"github.com/cucumber/godog"

	"legitid/e2e/steps/auth"
	"legitid/e2e/steps/common"
	"legitid/e2e/steps/identity"
	"legitid/e2e/steps/verification"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (background, generic assertions)
	common.RegisterSteps(ctx, tc)

	// Register the domain-specific steps
	auth.RegisterSteps(ctx, tc)
	identity.RegisterSteps(ctx, tc)
	verification.RegisterSteps(ctx, tc)
}
