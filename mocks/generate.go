package mocks

//go:generate mockgen -destination=./mock_indicator.go -package=mocks github.com/rxtech-lab/floorsheet-signals/internal/indicator Indicator
//go:generate mockgen -destination=./mock_datasource.go -package=mocks github.com/rxtech-lab/floorsheet-signals/internal/trainer DataSource
//go:generate mockgen -destination=./mock_recorder.go -package=mocks github.com/rxtech-lab/floorsheet-signals/internal/trainer Recorder
//go:generate mockgen -destination=./mock_artifact_repository.go -package=mocks github.com/rxtech-lab/floorsheet-signals/internal/trainer ArtifactRepository
//go:generate mockgen -destination=./mock_feature_source.go -package=mocks github.com/rxtech-lab/floorsheet-signals/internal/predictor FeatureSource
