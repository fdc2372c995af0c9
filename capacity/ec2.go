package capacity

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ec2"

	"github.com/oscied/orchestrator/cmn"
)

// EC2Adapter manages worker units as EC2 instances tagged
// "oscied:environment" and "oscied:service", reusing the aws-sdk-go
// dependency the teacher carries (originally wired for its S3 backend
// provider) for a second AWS surface.
type EC2Adapter struct {
	client   *ec2.EC2
	amiID    string
	subnetID string
	instanceType string
}

func NewEC2Adapter(region, amiID, subnetID, instanceType string) (*EC2Adapter, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, cmn.Wrap(err, cmn.KindInternal, "failed to create ec2 session")
	}
	return &EC2Adapter{client: ec2.New(sess), amiID: amiID, subnetID: subnetID, instanceType: instanceType}, nil
}

func (a *EC2Adapter) filters(environment, service string) []*ec2.Filter {
	return []*ec2.Filter{
		{Name: aws.String("tag:oscied:environment"), Values: []*string{aws.String(environment)}},
		{Name: aws.String("tag:oscied:service"), Values: []*string{aws.String(service)}},
		{Name: aws.String("instance-state-name"), Values: []*string{aws.String("pending"), aws.String("running")}},
	}
}

func unitStateFromEC2(state string) UnitState {
	switch state {
	case "running":
		return UnitStarted
	case "pending":
		return UnitPending
	default:
		return UnitUnknown
	}
}

func (a *EC2Adapter) Observe(ctx context.Context, environment, service string) (ObservedUnits, error) {
	out, err := a.client.DescribeInstancesWithContext(ctx, &ec2.DescribeInstancesInput{Filters: a.filters(environment, service)})
	if err != nil {
		return ObservedUnits{}, cmn.Wrap(err, cmn.KindTransient, "failed to describe ec2 instances")
	}
	result := ObservedUnits{Service: service, ByState: map[UnitState]int{}}
	for _, r := range out.Reservations {
		for _, inst := range r.Instances {
			st := unitStateFromEC2(aws.StringValue(inst.State.Name))
			result.ByState[st]++
			result.Units = append(result.Units, UnitInfo{ID: aws.StringValue(inst.InstanceId), State: st})
			result.Total++
		}
	}
	return result, nil
}

func (a *EC2Adapter) EnsureNumUnits(ctx context.Context, environment, service string, count int) error {
	observed, err := a.Observe(ctx, environment, service)
	if err != nil {
		return err
	}
	if observed.Total < count {
		toAdd := count - observed.Total
		_, err := a.client.RunInstancesWithContext(ctx, &ec2.RunInstancesInput{
			ImageId:      aws.String(a.amiID),
			InstanceType: aws.String(a.instanceType),
			SubnetId:     aws.String(a.subnetID),
			MinCount:     aws.Int64(int64(toAdd)),
			MaxCount:     aws.Int64(int64(toAdd)),
			TagSpecifications: []*ec2.TagSpecification{{
				ResourceType: aws.String("instance"),
				Tags: []*ec2.Tag{
					{Key: aws.String("oscied:environment"), Value: aws.String(environment)},
					{Key: aws.String("oscied:service"), Value: aws.String(service)},
				},
			}},
		})
		if err != nil {
			return cmn.Wrap(err, cmn.KindTransient, "failed to launch ec2 instances")
		}
		return nil
	}
	if observed.Total > count {
		// Implementations MAY terminate machines directly to reclaim
		// capacity (spec §4.5 step 3); the instances terminated are the
		// first ones in DescribeInstances order, which is not sorted by
		// launch time.
		toRemove := observed.Total - count
		var ids []*string
		for i := 0; i < toRemove && i < len(observed.Units); i++ {
			ids = append(ids, aws.String(observed.Units[i].ID))
		}
		if len(ids) == 0 {
			return nil
		}
		if _, err := a.client.TerminateInstancesWithContext(ctx, &ec2.TerminateInstancesInput{InstanceIds: ids}); err != nil {
			return cmn.Wrap(err, cmn.KindTransient, "failed to terminate ec2 instances")
		}
	}
	return nil
}

// ResolveError reboots an instance reported as errored; a single best-effort
// attempt per spec §4.5 step 4.
func (a *EC2Adapter) ResolveError(ctx context.Context, _, _, unitID string) error {
	_, err := a.client.RebootInstancesWithContext(ctx, &ec2.RebootInstancesInput{InstanceIds: []*string{aws.String(unitID)}})
	if err != nil {
		return cmn.Wrap(err, cmn.KindTransient, "failed to reboot instance")
	}
	return nil
}
