package aws

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/taskfleet/deployer-backend/pkg/domain/entities"
	"github.com/taskfleet/deployer-backend/pkg/fleet"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	asgtypes "github.com/aws/aws-sdk-go-v2/service/autoscaling/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

type fakeEC2 struct {
	describeOut *ec2.DescribeLaunchTemplatesOutput
	describeErr error

	createIn  *ec2.CreateLaunchTemplateInput
	versionIn *ec2.CreateLaunchTemplateVersionInput
}

func (f *fakeEC2) DescribeLaunchTemplates(_ context.Context, params *ec2.DescribeLaunchTemplatesInput, _ ...func(*ec2.Options)) (*ec2.DescribeLaunchTemplatesOutput, error) {
	return f.describeOut, f.describeErr
}

func (f *fakeEC2) CreateLaunchTemplate(_ context.Context, params *ec2.CreateLaunchTemplateInput, _ ...func(*ec2.Options)) (*ec2.CreateLaunchTemplateOutput, error) {
	f.createIn = params
	return &ec2.CreateLaunchTemplateOutput{
		LaunchTemplate: &ec2types.LaunchTemplate{
			LaunchTemplateId:    aws.String("lt-new"),
			LaunchTemplateName:  params.LaunchTemplateName,
			LatestVersionNumber: aws.Int64(1),
		},
	}, nil
}

func (f *fakeEC2) CreateLaunchTemplateVersion(_ context.Context, params *ec2.CreateLaunchTemplateVersionInput, _ ...func(*ec2.Options)) (*ec2.CreateLaunchTemplateVersionOutput, error) {
	f.versionIn = params
	return &ec2.CreateLaunchTemplateVersionOutput{
		LaunchTemplateVersion: &ec2types.LaunchTemplateVersion{
			LaunchTemplateId: params.LaunchTemplateId,
			VersionNumber:    aws.Int64(7),
		},
	}, nil
}

type fakeASG struct {
	describeOut *autoscaling.DescribeInstanceRefreshesOutput
	describeErr error
	startOut    *autoscaling.StartInstanceRefreshOutput
	startErr    error
	startIn     *autoscaling.StartInstanceRefreshInput
}

func (f *fakeASG) DescribeInstanceRefreshes(_ context.Context, params *autoscaling.DescribeInstanceRefreshesInput, _ ...func(*autoscaling.Options)) (*autoscaling.DescribeInstanceRefreshesOutput, error) {
	return f.describeOut, f.describeErr
}

func (f *fakeASG) StartInstanceRefresh(_ context.Context, params *autoscaling.StartInstanceRefreshInput, _ ...func(*autoscaling.Options)) (*autoscaling.StartInstanceRefreshOutput, error) {
	f.startIn = params
	return f.startOut, f.startErr
}

func TestFindBootTemplatesFollowsNamingConvention(t *testing.T) {
	ec2api := &fakeEC2{
		describeOut: &ec2.DescribeLaunchTemplatesOutput{
			LaunchTemplates: []ec2types.LaunchTemplate{
				{
					LaunchTemplateId:    aws.String("lt-1"),
					LaunchTemplateName:  aws.String("web-fleet-boot"),
					LatestVersionNumber: aws.Int64(3),
				},
			},
		},
	}
	client := &FleetClient{ec2: ec2api, asg: &fakeASG{}}

	templates, err := client.FindBootTemplates(context.Background(), "web-fleet")
	if err != nil {
		t.Fatalf("FindBootTemplates returned error: %v", err)
	}
	if len(templates) != 1 {
		t.Fatalf("expected one template, got %d", len(templates))
	}
	if templates[0].Name != "web-fleet-boot" || templates[0].LatestVersion != 3 {
		t.Fatalf("unexpected template mapping: %+v", templates[0])
	}
}

func TestCreateBootTemplateEncodesPayload(t *testing.T) {
	ec2api := &fakeEC2{}
	client := &FleetClient{ec2: ec2api, asg: &fakeASG{}}

	version, err := client.CreateBootTemplate(context.Background(), "web-fleet", "#!/bin/bash\necho boot")
	if err != nil {
		t.Fatalf("CreateBootTemplate returned error: %v", err)
	}
	if version.Version != 1 {
		t.Fatalf("expected version 1, got %d", version.Version)
	}
	if got := aws.ToString(ec2api.createIn.LaunchTemplateName); got != "web-fleet-boot" {
		t.Fatalf("expected launch template web-fleet-boot, got %s", got)
	}
	decoded, err := base64.StdEncoding.DecodeString(aws.ToString(ec2api.createIn.LaunchTemplateData.UserData))
	if err != nil || string(decoded) != "#!/bin/bash\necho boot" {
		t.Fatalf("expected base64 user data round trip, got %q (%v)", decoded, err)
	}
}

func TestCreateBootTemplateVersionReturnsNewVersion(t *testing.T) {
	ec2api := &fakeEC2{}
	client := &FleetClient{ec2: ec2api, asg: &fakeASG{}}

	version, err := client.CreateBootTemplateVersion(context.Background(), "lt-1", "payload")
	if err != nil {
		t.Fatalf("CreateBootTemplateVersion returned error: %v", err)
	}
	if version.Version != 7 || version.TemplateID != "lt-1" {
		t.Fatalf("unexpected version mapping: %+v", version)
	}
}

func TestActiveRefreshIgnoresTerminalRefreshes(t *testing.T) {
	asg := &fakeASG{
		describeOut: &autoscaling.DescribeInstanceRefreshesOutput{
			InstanceRefreshes: []asgtypes.InstanceRefresh{
				{InstanceRefreshId: aws.String("refresh-0"), Status: asgtypes.InstanceRefreshStatusSuccessful},
				{InstanceRefreshId: aws.String("refresh-1"), Status: asgtypes.InstanceRefreshStatusCancelled},
			},
		},
	}
	client := &FleetClient{ec2: &fakeEC2{}, asg: asg}

	active, err := client.ActiveRefresh(context.Background(), "web-fleet")
	if err != nil {
		t.Fatalf("ActiveRefresh returned error: %v", err)
	}
	if active != nil {
		t.Fatalf("terminal refreshes are not active, got %+v", active)
	}
}

func TestActiveRefreshReportsInProgressRefresh(t *testing.T) {
	asg := &fakeASG{
		describeOut: &autoscaling.DescribeInstanceRefreshesOutput{
			InstanceRefreshes: []asgtypes.InstanceRefresh{
				{InstanceRefreshId: aws.String("refresh-2"), Status: asgtypes.InstanceRefreshStatusInProgress},
			},
		},
	}
	client := &FleetClient{ec2: &fakeEC2{}, asg: asg}

	active, err := client.ActiveRefresh(context.Background(), "web-fleet")
	if err != nil {
		t.Fatalf("ActiveRefresh returned error: %v", err)
	}
	if active == nil || active.ID != "refresh-2" {
		t.Fatalf("expected refresh-2 active, got %+v", active)
	}
}

func TestStartRefreshMapsPolicyAndVersion(t *testing.T) {
	asg := &fakeASG{
		startOut: &autoscaling.StartInstanceRefreshOutput{InstanceRefreshId: aws.String("refresh-3")},
	}
	client := &FleetClient{ec2: &fakeEC2{}, asg: asg}

	policy := entities.RolloutPolicy{MinHealthyPercentage: 80, InstanceWarmup: 90 * time.Second, SkipMatching: true}
	op, err := client.StartRefresh(context.Background(), "web-fleet", entities.BootTemplateVersion{TemplateID: "lt-1", Version: 7}, policy)
	if err != nil {
		t.Fatalf("StartRefresh returned error: %v", err)
	}
	if op.ID != "refresh-3" {
		t.Fatalf("expected refresh-3, got %s", op.ID)
	}
	prefs := asg.startIn.Preferences
	if aws.ToInt32(prefs.MinHealthyPercentage) != 80 || aws.ToInt32(prefs.InstanceWarmup) != 90 || !aws.ToBool(prefs.SkipMatching) {
		t.Fatalf("unexpected preferences: %+v", prefs)
	}
	if got := aws.ToString(asg.startIn.DesiredConfiguration.LaunchTemplate.Version); got != "7" {
		t.Fatalf("expected template version 7, got %s", got)
	}
}

func TestStartRefreshMapsInProgressFault(t *testing.T) {
	asg := &fakeASG{startErr: &asgtypes.InstanceRefreshInProgressFault{Message: aws.String("already running")}}
	client := &FleetClient{ec2: &fakeEC2{}, asg: asg}

	_, err := client.StartRefresh(context.Background(), "web-fleet", entities.BootTemplateVersion{TemplateID: "lt-1", Version: 1}, entities.RolloutPolicy{})
	var startErr *fleet.RefreshStartError
	if !errors.As(err, &startErr) {
		t.Fatalf("expected RefreshStartError for the provider in-progress fault, got %v", err)
	}
}

func TestDescribeRefreshMapsProviderStatuses(t *testing.T) {
	cases := []struct {
		provider asgtypes.InstanceRefreshStatus
		want     entities.RefreshStatus
	}{
		{asgtypes.InstanceRefreshStatusPending, entities.RefreshStatusPending},
		{asgtypes.InstanceRefreshStatusInProgress, entities.RefreshStatusInProgress},
		{asgtypes.InstanceRefreshStatusSuccessful, entities.RefreshStatusSuccessful},
		{asgtypes.InstanceRefreshStatusFailed, entities.RefreshStatusFailed},
		{asgtypes.InstanceRefreshStatusCancelled, entities.RefreshStatusCancelled},
		{asgtypes.InstanceRefreshStatusCancelling, entities.RefreshStatusInProgress},
	}

	for _, tc := range cases {
		asg := &fakeASG{
			describeOut: &autoscaling.DescribeInstanceRefreshesOutput{
				InstanceRefreshes: []asgtypes.InstanceRefresh{
					{InstanceRefreshId: aws.String("refresh-1"), Status: tc.provider},
				},
			},
		}
		client := &FleetClient{ec2: &fakeEC2{}, asg: asg}

		status, err := client.DescribeRefresh(context.Background(), "web-fleet", "refresh-1")
		if err != nil {
			t.Fatalf("DescribeRefresh(%s) returned error: %v", tc.provider, err)
		}
		if status != tc.want {
			t.Fatalf("DescribeRefresh(%s) = %s, want %s", tc.provider, status, tc.want)
		}
	}
}

func TestDescribeRefreshErrorsWhenRefreshMissing(t *testing.T) {
	asg := &fakeASG{describeOut: &autoscaling.DescribeInstanceRefreshesOutput{}}
	client := &FleetClient{ec2: &fakeEC2{}, asg: asg}

	_, err := client.DescribeRefresh(context.Background(), "web-fleet", "refresh-404")
	if err == nil {
		t.Fatal("expected an error for an unknown refresh id")
	}
}
