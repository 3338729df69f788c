// Package awscheck verifies that the current AWS credentials can run the
// operations a schema exposes against its table.
package awscheck

import (
	"context"
	"fmt"
	"strings"

	"github.com/acksell/electro/dynamodb/schema"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// STSClient is the subset of the STS client used here.
type STSClient interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// IAMClient is the subset of the IAM client used here.
type IAMClient interface {
	SimulatePrincipalPolicy(ctx context.Context, params *iam.SimulatePrincipalPolicyInput, optFns ...func(*iam.Options)) (*iam.SimulatePrincipalPolicyOutput, error)
}

type Checker struct {
	sts    STSClient
	iam    IAMClient
	region string
}

// New creates a Checker from an AWS config.
func New(cfg aws.Config) *Checker {
	return NewWithClients(sts.NewFromConfig(cfg), iam.NewFromConfig(cfg), cfg.Region)
}

func NewWithClients(s STSClient, i IAMClient, region string) *Checker {
	return &Checker{sts: s, iam: i, region: region}
}

// Decision is the simulated outcome of one DynamoDB action.
type Decision struct {
	Action   string `json:"action"`
	Decision string `json:"decision"`
	Allowed  bool   `json:"allowed"`
}

type Report struct {
	Account   string     `json:"account"`
	Principal string     `json:"principal"`
	Table     string     `json:"table"`
	Decisions []Decision `json:"decisions"`
}

// Allowed reports whether every action was allowed.
func (r *Report) Allowed() bool {
	for _, d := range r.Decisions {
		if !d.Allowed {
			return false
		}
	}
	return true
}

var actionPermissions = map[schema.Action][]string{
	schema.ActionQuery:  {"dynamodb:Query"},
	schema.ActionScan:   {"dynamodb:Scan"},
	schema.ActionCreate: {"dynamodb:PutItem"},
	schema.ActionPatch:  {"dynamodb:UpdateItem"},
	schema.ActionRemove: {"dynamodb:DeleteItem"},
}

// Permissions lists the DynamoDB actions the entities of s declare, in a
// stable order without duplicates.
func Permissions(s *schema.Schema) []string {
	var out []string
	seen := make(map[string]bool)
	for _, action := range schema.Actions {
		for _, inst := range s.Entities() {
			if !inst.Can(action) {
				continue
			}
			for _, p := range actionPermissions[action] {
				if !seen[p] {
					seen[p] = true
					out = append(out, p)
				}
			}
		}
	}
	return out
}

// Check resolves the caller identity and simulates its policies for actions
// on table and its indexes.
func (c *Checker) Check(ctx context.Context, table string, actions []string) (*Report, error) {
	ident, err := c.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("get caller identity: %w", err)
	}
	account := aws.ToString(ident.Account)
	principal := principalARN(aws.ToString(ident.Arn))

	report := &Report{Account: account, Principal: principal, Table: table}
	if len(actions) == 0 {
		return report, nil
	}

	tableARN := fmt.Sprintf("arn:aws:dynamodb:%s:%s:table/%s", c.region, account, table)
	input := &iam.SimulatePrincipalPolicyInput{
		PolicySourceArn: aws.String(principal),
		ActionNames:     actions,
		ResourceArns:    []string{tableARN, tableARN + "/index/*"},
	}
	decisions := make(map[string]iamtypes.PolicyEvaluationDecisionType)
	for {
		out, err := c.iam.SimulatePrincipalPolicy(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("simulate principal policy: %w", err)
		}
		for _, r := range out.EvaluationResults {
			name := aws.ToString(r.EvalActionName)
			// An action is only allowed if it is allowed on every resource.
			if prev, ok := decisions[name]; ok && prev != iamtypes.PolicyEvaluationDecisionTypeAllowed {
				continue
			}
			decisions[name] = r.EvalDecision
		}
		if !out.IsTruncated {
			break
		}
		input.Marker = out.Marker
	}

	for _, a := range actions {
		d, ok := decisions[a]
		if !ok {
			d = iamtypes.PolicyEvaluationDecisionTypeImplicitDeny
		}
		report.Decisions = append(report.Decisions, Decision{
			Action:   a,
			Decision: string(d),
			Allowed:  d == iamtypes.PolicyEvaluationDecisionTypeAllowed,
		})
	}
	return report, nil
}

// principalARN turns an assumed-role session ARN into the role ARN IAM can
// simulate. Other ARNs are returned unchanged.
func principalARN(arn string) string {
	// arn:aws:sts::123456789012:assumed-role/Role/session
	parts := strings.SplitN(arn, ":", 6)
	if len(parts) != 6 || parts[2] != "sts" || !strings.HasPrefix(parts[5], "assumed-role/") {
		return arn
	}
	role := strings.Split(strings.TrimPrefix(parts[5], "assumed-role/"), "/")[0]
	return fmt.Sprintf("arn:%s:iam::%s:role/%s", parts[1], parts[4], role)
}
