package aws

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/taskfleet/deployer-backend/pkg/domain/entities"
	"github.com/taskfleet/deployer-backend/pkg/fleet"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	asgtypes "github.com/aws/aws-sdk-go-v2/service/autoscaling/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
)

// Naming convention: the boot template of fleet X is the launch template
// named "X-boot"; the refresh target is the Auto Scaling group named X.
func bootTemplateName(fleetID string) string {
	return fleetID + "-boot"
}

type EC2API interface {
	DescribeLaunchTemplates(ctx context.Context, params *ec2.DescribeLaunchTemplatesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeLaunchTemplatesOutput, error)
	CreateLaunchTemplate(ctx context.Context, params *ec2.CreateLaunchTemplateInput, optFns ...func(*ec2.Options)) (*ec2.CreateLaunchTemplateOutput, error)
	CreateLaunchTemplateVersion(ctx context.Context, params *ec2.CreateLaunchTemplateVersionInput, optFns ...func(*ec2.Options)) (*ec2.CreateLaunchTemplateVersionOutput, error)
}

type AutoScalingAPI interface {
	DescribeInstanceRefreshes(ctx context.Context, params *autoscaling.DescribeInstanceRefreshesInput, optFns ...func(*autoscaling.Options)) (*autoscaling.DescribeInstanceRefreshesOutput, error)
	StartInstanceRefresh(ctx context.Context, params *autoscaling.StartInstanceRefreshInput, optFns ...func(*autoscaling.Options)) (*autoscaling.StartInstanceRefreshOutput, error)
}

// FleetClient implements fleet.TemplateAPI and fleet.RefreshAPI against
// EC2 launch templates and Auto Scaling instance refreshes.
type FleetClient struct {
	ec2 EC2API
	asg AutoScalingAPI
}

func NewFleetClient(ctx context.Context, region string) (*FleetClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &FleetClient{
		ec2: ec2.NewFromConfig(cfg),
		asg: autoscaling.NewFromConfig(cfg),
	}, nil
}

func (c *FleetClient) FindBootTemplates(ctx context.Context, fleetID string) ([]entities.BootTemplate, error) {
	out, err := c.ec2.DescribeLaunchTemplates(ctx, &ec2.DescribeLaunchTemplatesInput{
		Filters: []ec2types.Filter{
			{
				Name:   aws.String("launch-template-name"),
				Values: []string{bootTemplateName(fleetID)},
			},
		},
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "InvalidLaunchTemplateName.NotFoundException" {
			return nil, nil
		}
		return nil, fmt.Errorf("describe launch templates: %w", err)
	}

	templates := make([]entities.BootTemplate, 0, len(out.LaunchTemplates))
	for _, lt := range out.LaunchTemplates {
		templates = append(templates, entities.BootTemplate{
			ID:            aws.ToString(lt.LaunchTemplateId),
			Name:          aws.ToString(lt.LaunchTemplateName),
			LatestVersion: aws.ToInt64(lt.LatestVersionNumber),
		})
	}
	return templates, nil
}

func (c *FleetClient) CreateBootTemplate(ctx context.Context, fleetID string, payload string) (entities.BootTemplateVersion, error) {
	out, err := c.ec2.CreateLaunchTemplate(ctx, &ec2.CreateLaunchTemplateInput{
		LaunchTemplateName: aws.String(bootTemplateName(fleetID)),
		LaunchTemplateData: &ec2types.RequestLaunchTemplateData{
			UserData: aws.String(base64.StdEncoding.EncodeToString([]byte(payload))),
		},
	})
	if err != nil {
		return entities.BootTemplateVersion{}, fmt.Errorf("create launch template: %w", err)
	}
	return entities.BootTemplateVersion{
		TemplateID: aws.ToString(out.LaunchTemplate.LaunchTemplateId),
		Version:    aws.ToInt64(out.LaunchTemplate.LatestVersionNumber),
		Payload:    payload,
		CreatedAt:  time.Now(),
	}, nil
}

func (c *FleetClient) CreateBootTemplateVersion(ctx context.Context, templateID string, payload string) (entities.BootTemplateVersion, error) {
	out, err := c.ec2.CreateLaunchTemplateVersion(ctx, &ec2.CreateLaunchTemplateVersionInput{
		LaunchTemplateId: aws.String(templateID),
		LaunchTemplateData: &ec2types.RequestLaunchTemplateData{
			UserData: aws.String(base64.StdEncoding.EncodeToString([]byte(payload))),
		},
	})
	if err != nil {
		return entities.BootTemplateVersion{}, fmt.Errorf("create launch template version: %w", err)
	}
	return entities.BootTemplateVersion{
		TemplateID: templateID,
		Version:    aws.ToInt64(out.LaunchTemplateVersion.VersionNumber),
		Payload:    payload,
		CreatedAt:  time.Now(),
	}, nil
}

func (c *FleetClient) ActiveRefresh(ctx context.Context, fleetID string) (*entities.RefreshOperation, error) {
	out, err := c.asg.DescribeInstanceRefreshes(ctx, &autoscaling.DescribeInstanceRefreshesInput{
		AutoScalingGroupName: aws.String(fleetID),
		MaxRecords:           aws.Int32(10),
	})
	if err != nil {
		return nil, fmt.Errorf("describe instance refreshes: %w", err)
	}
	for _, refresh := range out.InstanceRefreshes {
		status := mapRefreshStatus(refresh.Status)
		if status.Terminal() {
			continue
		}
		return &entities.RefreshOperation{
			ID:      aws.ToString(refresh.InstanceRefreshId),
			FleetID: fleetID,
			Status:  status,
		}, nil
	}
	return nil, nil
}

func (c *FleetClient) StartRefresh(ctx context.Context, fleetID string, version entities.BootTemplateVersion, policy entities.RolloutPolicy) (entities.RefreshOperation, error) {
	out, err := c.asg.StartInstanceRefresh(ctx, &autoscaling.StartInstanceRefreshInput{
		AutoScalingGroupName: aws.String(fleetID),
		DesiredConfiguration: &asgtypes.DesiredConfiguration{
			LaunchTemplate: &asgtypes.LaunchTemplateSpecification{
				LaunchTemplateId: aws.String(version.TemplateID),
				Version:          aws.String(strconv.FormatInt(version.Version, 10)),
			},
		},
		Preferences: &asgtypes.RefreshPreferences{
			MinHealthyPercentage: aws.Int32(policy.MinHealthyPercentage),
			InstanceWarmup:       aws.Int32(int32(policy.InstanceWarmup / time.Second)),
			SkipMatching:         aws.Bool(policy.SkipMatching),
		},
	})
	if err != nil {
		var inProgress *asgtypes.InstanceRefreshInProgressFault
		if errors.As(err, &inProgress) {
			return entities.RefreshOperation{}, &fleet.RefreshStartError{
				FleetID: fleetID,
				Reason:  "fleet manager reports a refresh already in progress",
				Err:     err,
			}
		}
		return entities.RefreshOperation{}, fmt.Errorf("start instance refresh: %w", err)
	}
	return entities.RefreshOperation{
		ID:              aws.ToString(out.InstanceRefreshId),
		FleetID:         fleetID,
		TemplateID:      version.TemplateID,
		TemplateVersion: version.Version,
		Policy:          policy,
		Status:          entities.RefreshStatusPending,
		StartedAt:       time.Now(),
	}, nil
}

func (c *FleetClient) DescribeRefresh(ctx context.Context, fleetID string, refreshID string) (entities.RefreshStatus, error) {
	out, err := c.asg.DescribeInstanceRefreshes(ctx, &autoscaling.DescribeInstanceRefreshesInput{
		AutoScalingGroupName: aws.String(fleetID),
		InstanceRefreshIds:   []string{refreshID},
	})
	if err != nil {
		return "", fmt.Errorf("describe instance refresh %s: %w", refreshID, err)
	}
	if len(out.InstanceRefreshes) == 0 {
		return "", fmt.Errorf("instance refresh %s not found for fleet %s", refreshID, fleetID)
	}
	return mapRefreshStatus(out.InstanceRefreshes[0].Status), nil
}

func mapRefreshStatus(status asgtypes.InstanceRefreshStatus) entities.RefreshStatus {
	switch status {
	case asgtypes.InstanceRefreshStatusPending:
		return entities.RefreshStatusPending
	case asgtypes.InstanceRefreshStatusSuccessful:
		return entities.RefreshStatusSuccessful
	case asgtypes.InstanceRefreshStatusFailed, asgtypes.InstanceRefreshStatusRollbackSuccessful, asgtypes.InstanceRefreshStatusRollbackFailed:
		return entities.RefreshStatusFailed
	case asgtypes.InstanceRefreshStatusCancelled:
		return entities.RefreshStatusCancelled
	default:
		// InProgress, Cancelling, RollbackInProgress, Baking: still moving.
		return entities.RefreshStatusInProgress
	}
}
