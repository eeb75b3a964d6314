package scheduler

import (
	"context"
	"fmt"

	"github.com/example/lab-resource-manager/internal/domain"
)

// OverlapFinder is the slice of the reservation repository the checker needs.
type OverlapFinder interface {
	FindOverlapping(ctx context.Context, period domain.TimePeriod) ([]domain.ResourceUsage, error)
}

// Conflict describes the first double booking found for a candidate.
type Conflict struct {
	Resource            domain.Resource
	ResourceDescription string
	ConflictingUsageID  domain.UsageID
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s is already reserved by %s", c.ResourceDescription, c.ConflictingUsageID)
}

// ConflictChecker detects reservations that clash with a candidate.
type ConflictChecker struct {
	finder OverlapFinder
}

func NewConflictChecker(finder OverlapFinder) *ConflictChecker {
	return &ConflictChecker{finder: finder}
}

// Check returns the first conflict in overlap order, or nil when the
// resources are free. excludeID skips the reservation being edited. The check
// is not atomic with any later save.
func (c *ConflictChecker) Check(ctx context.Context, period domain.TimePeriod, resources []domain.Resource, excludeID domain.UsageID) (*Conflict, error) {
	overlapping, err := c.finder.FindOverlapping(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("find overlapping reservations: %w", err)
	}
	return DetectConflict(overlapping, resources, excludeID), nil
}

// DetectConflict runs the pairwise comparison on an already fetched set.
func DetectConflict(overlapping []domain.ResourceUsage, resources []domain.Resource, excludeID domain.UsageID) *Conflict {
	for _, candidate := range resources {
		for _, existing := range overlapping {
			if excludeID != "" && existing.ID() == excludeID {
				continue
			}
			for _, booked := range existing.Resources() {
				if candidate.ConflictsWith(booked) {
					return &Conflict{
						Resource:            candidate,
						ResourceDescription: candidate.Describe(),
						ConflictingUsageID:  existing.ID(),
					}
				}
			}
		}
	}
	return nil
}
