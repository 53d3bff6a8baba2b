// Package provision drives company onboarding: register the company,
// attach an employee data source, attach policies, and provision
// credentials for every employee row. Registration is the only hard
// dependency; every later step is best effort and reported individually.
package provision

import (
	"context"
	"strings"

	"hrsupport/internal/gateway"
)

type Step string

const (
	StepRegister     Step = "register"
	StepLogin        Step = "login"
	StepDataSource   Step = "data_source"
	StepPolicyText   Step = "policy_text"
	StepPolicyDoc    Step = "policy_document"
	StepProvisioning Step = "provision"
)

// LoginFunc exchanges the freshly registered admin identity for an
// authenticated gateway. Registration is the only unauthenticated call;
// every later step runs through the gateway this returns.
type LoginFunc func(ctx context.Context, admin gateway.RegisterResult) (gateway.Gateway, error)

// Input is the user-supplied onboarding form. Source, PolicyText, and
// PolicyDoc are all optional.
type Input struct {
	Company    gateway.CompanyFields
	Source     *gateway.SourceDescriptor
	PolicyText string
	PolicyDoc  *gateway.PolicyAttachment
}

// Result is the orchestrator's terminal state. StepErrors holds one entry
// per failed step; a flow can finish with a company id and several step
// failures at once.
type Result struct {
	CompanyID        string
	Admin            gateway.RegisterResult
	DataSourceID     string
	InferredSchema   gateway.SchemaMap
	PoliciesAttached bool
	Provisioned      *gateway.ProvisionSummary
	StepErrors       map[Step]error
}

// Failed reports whether the named step failed.
func (r Result) Failed(step Step) bool {
	_, ok := r.StepErrors[step]
	return ok
}

type Orchestrator struct {
	gw    gateway.Gateway
	login LoginFunc
}

func New(gw gateway.Gateway) *Orchestrator {
	return &Orchestrator{gw: gw}
}

// NewWithLogin builds an orchestrator that signs in as the new company's
// admin after registration. The company routes all require a session, so
// a flow that starts from an unauthenticated gateway must supply a login.
func NewWithLogin(gw gateway.Gateway, login LoginFunc) *Orchestrator {
	return &Orchestrator{gw: gw, login: login}
}

// Run executes the onboarding sequence. A registration or admin sign-in
// failure aborts the whole flow; any other step failure is recorded and
// the flow continues. Provisioning runs only when a data source was
// attached successfully.
func (o *Orchestrator) Run(ctx context.Context, input Input) (Result, error) {
	result := Result{StepErrors: make(map[Step]error)}

	if err := validateCompany(input.Company); err != nil {
		return result, err
	}

	admin, err := o.gw.RegisterCompany(ctx, input.Company)
	if err != nil {
		result.StepErrors[StepRegister] = err
		return result, err
	}
	companyID := admin.CompanyID
	result.CompanyID = companyID
	result.Admin = admin

	// Later steps need a session. Without one they would all fail
	// Unauthorized, so a sign-in failure stops the flow here.
	gw := o.gw
	if o.login != nil {
		authed, err := o.login(ctx, admin)
		if err != nil {
			result.StepErrors[StepLogin] = err
			return result, err
		}
		gw = authed
	}

	if input.Source != nil {
		attached, err := gw.AttachDataSource(ctx, companyID, *input.Source)
		if err != nil {
			result.StepErrors[StepDataSource] = err
		} else {
			result.DataSourceID = attached.DataSourceID
			result.InferredSchema = attached.InferredSchema
		}
	}

	if strings.TrimSpace(input.PolicyText) != "" {
		policy := gateway.PolicyAttachment{Kind: gateway.PolicyKindText, Text: input.PolicyText}
		if _, err := gw.AttachPolicy(ctx, companyID, policy); err != nil {
			result.StepErrors[StepPolicyText] = err
		} else {
			result.PoliciesAttached = true
		}
	}

	if input.PolicyDoc != nil {
		doc := *input.PolicyDoc
		doc.Kind = gateway.PolicyKindDocument
		if _, err := gw.AttachPolicy(ctx, companyID, doc); err != nil {
			result.StepErrors[StepPolicyDoc] = err
		} else {
			result.PoliciesAttached = true
		}
	}

	if result.DataSourceID != "" {
		summary, err := gw.ProvisionEmployees(ctx, companyID, result.DataSourceID)
		if err != nil {
			result.StepErrors[StepProvisioning] = err
		} else {
			result.Provisioned = &summary
		}
	}

	return result, nil
}

func validateCompany(fields gateway.CompanyFields) error {
	if strings.TrimSpace(fields.Name) == "" {
		return gateway.Validationf("company name is required")
	}
	if strings.TrimSpace(fields.AdminEmail) == "" {
		return gateway.Validationf("admin contact email is required")
	}
	return nil
}
