package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/kwetupizza-backend/pkg/db/models"
	"github.com/angelmondragon/kwetupizza-backend/pkg/logger"
)

const (
	trackingJobName   = "delivery-tracking"
	trackingBatchSize = 100
)

// DelayFlagger marks overdue orders and notifies about them.
type DelayFlagger interface {
	FlagDelayed(ctx context.Context, now time.Time, limit int) ([]models.Order, error)
}

// TrackingJobParams configure the delivery tracking job.
type TrackingJobParams struct {
	Logger    *logger.Logger
	Orders    DelayFlagger
	BatchSize int
}

type trackingJob struct {
	logg   *logger.Logger
	orders DelayFlagger
	batch  int
	now    func() time.Time
}

// NewTrackingJob builds the job that flags orders past their estimated
// delivery time. Orders already flagged are skipped, so overlapping or
// repeated runs notify at most once per order.
func NewTrackingJob(params TrackingJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = trackingBatchSize
	}
	return &trackingJob{
		logg:   params.Logger,
		orders: params.Orders,
		batch:  batch,
		now:    time.Now,
	}, nil
}

func (j *trackingJob) Name() string { return trackingJobName }

// Run drains overdue orders batch by batch until a short batch comes back.
func (j *trackingJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		flagged, err := j.orders.FlagDelayed(ctx, now, j.batch)
		total += len(flagged)
		if err != nil {
			return err
		}
		if len(flagged) < j.batch {
			break
		}
	}
	j.logg.Info(j.logg.WithField(ctx, "flagged", total), "delayed orders flagged")
	return nil
}
