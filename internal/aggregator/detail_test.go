package aggregator_test

import (
	"context"
	"errors"
	"testing"

	agg "github.com/VarshithGaddam/risk-predictor/internal/aggregator"
	"github.com/VarshithGaddam/risk-predictor/internal/fanout"
	"github.com/VarshithGaddam/risk-predictor/internal/gateway"
	"github.com/VarshithGaddam/risk-predictor/internal/models"
	"github.com/VarshithGaddam/risk-predictor/internal/viewstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockDetailSource is a mock implementation of DetailSource
type MockDetailSource struct {
	mock.Mock
}

func (m *MockDetailSource) GetPatient(ctx context.Context, patientID string) (*models.Patient, error) {
	args := m.Called(ctx, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Patient), args.Error(1)
}

func (m *MockDetailSource) PredictRisk(ctx context.Context, patientID string) (*models.RiskPrediction, error) {
	args := m.Called(ctx, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RiskPrediction), args.Error(1)
}

func TestDetailAggregator_LoadDetail_JoinsBoth(t *testing.T) {
	src := new(MockDetailSource)
	src.On("GetPatient", mock.Anything, "P1").Return(&models.Patient{PatientID: "P1", Name: "Ann"}, nil).Once()
	src.On("PredictRisk", mock.Anything, "P1").Return(&models.RiskPrediction{
		RiskScore:  20,
		RiskLevel:  "low",
		TopFactors: []string{"Age", "Comorbidities"},
	}, nil).Once()

	a := agg.NewDetailAggregator(src, zap.NewNop())
	detail, err := a.LoadDetail(context.Background(), "P1")
	require.NoError(t, err)

	assert.Equal(t, "Ann", detail.Patient.Name)
	assert.Equal(t, "low", detail.Prediction.RiskLevel)
	assert.Equal(t, []string{"Age", "Comorbidities"}, detail.Prediction.TopFactors)

	st := a.State()
	assert.Equal(t, viewstate.StatusReady, st.Status)
	assert.Equal(t, "P1", st.Value.Patient.PatientID)
	src.AssertExpectations(t)
}

func TestDetailAggregator_PredictionFailureFailsWholeLoad(t *testing.T) {
	src := new(MockDetailSource)
	rejected := &gateway.ServiceError{StatusCode: 500, Message: "model not trained"}
	src.On("GetPatient", mock.Anything, "P1").Return(&models.Patient{PatientID: "P1"}, nil).Once()
	src.On("PredictRisk", mock.Anything, "P1").Return(nil, rejected).Once()

	a := agg.NewDetailAggregator(src, zap.NewNop())
	detail, err := a.LoadDetail(context.Background(), "P1")
	assert.Nil(t, detail)

	var loadErr *agg.DetailLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "P1", loadErr.PatientID)

	var partial *fanout.PartialFetchFailure
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, []string{"prediction"}, partial.FailedNames())
	assert.ErrorIs(t, err, rejected)

	st := a.State()
	assert.Equal(t, viewstate.StatusError, st.Status)
	assert.False(t, st.HasValue)
}

func TestDetailAggregator_EmptyIDIsRejectedLocally(t *testing.T) {
	src := new(MockDetailSource)
	a := agg.NewDetailAggregator(src, zap.NewNop())

	_, err := a.LoadDetail(context.Background(), "")
	var ve *gateway.ValidationError
	require.ErrorAs(t, err, &ve)
	src.AssertNotCalled(t, "GetPatient", mock.Anything, mock.Anything)
	src.AssertNotCalled(t, "PredictRisk", mock.Anything, mock.Anything)
}

func TestDetailAggregator_NewerCallSupersedesOlder(t *testing.T) {
	src := new(MockDetailSource)
	release := make(chan struct{})
	entered := make(chan struct{})

	src.On("GetPatient", mock.Anything, "OLD").
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(&models.Patient{PatientID: "OLD"}, nil).Once()
	src.On("PredictRisk", mock.Anything, "OLD").Return(&models.RiskPrediction{RiskLevel: "high"}, nil).Once()
	src.On("GetPatient", mock.Anything, "NEW").Return(&models.Patient{PatientID: "NEW"}, nil).Once()
	src.On("PredictRisk", mock.Anything, "NEW").Return(&models.RiskPrediction{RiskLevel: "low"}, nil).Once()

	a := agg.NewDetailAggregator(src, zap.NewNop())

	errCh := make(chan error, 1)
	go func() {
		_, err := a.LoadDetail(context.Background(), "OLD")
		errCh <- err
	}()
	<-entered

	_, err := a.LoadDetail(context.Background(), "NEW")
	require.NoError(t, err)
	close(release)

	assert.True(t, errors.Is(<-errCh, viewstate.ErrSuperseded))
	assert.Equal(t, "NEW", a.State().Value.Patient.PatientID)
}
