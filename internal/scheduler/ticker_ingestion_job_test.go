package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/aristath/portfolio-tracker/internal/modules/universe"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockIngester struct {
	mock.Mock
}

func (m *mockIngester) IngestAllAvailableTickers(ctx context.Context) (*universe.IngestionReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*universe.IngestionReport), args.Error(1)
}

func TestTickerIngestionJob_Name(t *testing.T) {
	job := NewTickerIngestionJob(TickerIngestionJobConfig{Log: zerolog.Nop()})
	assert.Equal(t, "ticker_ingestion", job.Name())
}

func TestTickerIngestionJob_Run(t *testing.T) {
	ingester := new(mockIngester)
	ingester.On("IngestAllAvailableTickers", mock.Anything).Return(&universe.IngestionReport{
		RunID:    "r1",
		Inserted: 2,
		Failed:   []universe.FailedSymbol{{Symbol: "BAD", Error: "429"}},
	}, nil)

	job := NewTickerIngestionJob(TickerIngestionJobConfig{Log: zerolog.Nop(), Ingestion: ingester})

	assert.NoError(t, job.Run(context.Background()))
	ingester.AssertExpectations(t)
}

func TestTickerIngestionJob_Run_InProgressIsNotAnError(t *testing.T) {
	ingester := new(mockIngester)
	ingester.On("IngestAllAvailableTickers", mock.Anything).Return(nil, universe.ErrIngestionInProgress)

	job := NewTickerIngestionJob(TickerIngestionJobConfig{Log: zerolog.Nop(), Ingestion: ingester})
	assert.NoError(t, job.Run(context.Background()))
}

func TestTickerIngestionJob_Run_Failure(t *testing.T) {
	listingErr := errors.New("listing feed down")
	ingester := new(mockIngester)
	ingester.On("IngestAllAvailableTickers", mock.Anything).Return(nil, listingErr)

	job := NewTickerIngestionJob(TickerIngestionJobConfig{Log: zerolog.Nop(), Ingestion: ingester})
	assert.ErrorIs(t, job.Run(context.Background()), listingErr)
}

func TestTickerIngestionJob_Run_NoService(t *testing.T) {
	job := NewTickerIngestionJob(TickerIngestionJobConfig{Log: zerolog.Nop()})
	assert.Error(t, job.Run(context.Background()))
}
