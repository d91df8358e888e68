package ingestion

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rxtech-lab/floorsheet-signals/internal/config"
	"github.com/rxtech-lab/floorsheet-signals/internal/logger"
	"github.com/rxtech-lab/floorsheet-signals/internal/types"
	"github.com/rxtech-lab/floorsheet-signals/pkg/errors"
	"github.com/stretchr/testify/suite"
)

const sampleSheet = `SN,Contract No,Stock Symbol,Buyer,Seller,Quantity,Rate,Amount
1,100201,NABIL,21,45,"1,000","1,250.50","1,250,500.00"
2,100202,NABIL,45,,10,1250,999
3,100203,upper,17,21,50,300,15000
3,100203,upper,17,21,50,300,15000
4,100204,,17,21,50,300,15000
5,100205,NICA,17,21,abc,300,15000
6,100206,NICA,17,21,10.5,300,3150
7,100207,NICA,17,21,10,0,0
`

type IngestionTestSuite struct {
	suite.Suite
	cfg *config.Config
	log *logger.Logger
}

func TestIngestionSuite(t *testing.T) {
	suite.Run(t, new(IngestionTestSuite))
}

func (suite *IngestionTestSuite) SetupTest() {
	cfg, err := config.Default()
	suite.Require().NoError(err)

	root := suite.T().TempDir()
	cfg.Data.RawPath = filepath.Join(root, "raw")
	cfg.Data.ProcessedPath = filepath.Join(root, "processed")
	suite.Require().NoError(os.MkdirAll(cfg.Data.RawPath, 0o755))

	suite.cfg = cfg
	suite.log = logger.NewNopLogger()
}

func (suite *IngestionTestSuite) writeRaw(date, content string) {
	path := filepath.Join(suite.cfg.Data.RawPath, "floor_sheet_data_"+date+".csv")
	suite.Require().NoError(os.WriteFile(path, []byte(content), 0o644))
}

func (suite *IngestionTestSuite) TestNormalizeLenient() {
	date := types.MustParseDate("2024-01-02")

	trades, stats, err := normalize(strings.NewReader(sampleSheet), date, false)
	suite.Require().NoError(err)

	suite.Equal(8, stats.Read)
	suite.Equal(3, stats.Kept)
	suite.Equal(4, stats.Malformed)
	suite.Equal(1, stats.Duplicates)
	suite.Len(trades, 3)

	first := trades[0]
	suite.Equal(int64(1), first.SN)
	suite.Equal("100201", first.ContractNo)
	suite.Equal("NABIL", first.Symbol)
	suite.Equal(int64(1000), first.Quantity)
	suite.Equal(1250.5, first.Rate)
	suite.Equal(1_250_500.0, first.Amount)
	suite.True(first.Date.Equal(date))

	// reported amount is ignored and the missing seller is kept empty
	suite.Equal(12_500.0, trades[1].Amount)
	suite.Equal("", trades[1].Seller)

	// symbols are upper-cased
	suite.Equal("UPPER", trades[2].Symbol)
}

func (suite *IngestionTestSuite) TestNormalizeStrictFailsFile() {
	_, _, err := normalize(strings.NewReader(sampleSheet), types.MustParseDate("2024-01-02"), true)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMalformedRow))
	suite.Contains(err.Error(), "line 6")
}

func (suite *IngestionTestSuite) TestNormalizeMissingColumns() {
	_, _, err := normalize(strings.NewReader("SN,Symbol,Rate\n1,NABIL,100\n"), types.MustParseDate("2024-01-02"), false)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMalformedFile))
	suite.Contains(err.Error(), "Quantity")
}

func (suite *IngestionTestSuite) TestNormalizeHeaderAliases() {
	suite.Equal("ContractNo", NormalizeHeader(" Contract No "))
	suite.Equal("Symbol", NormalizeHeader("\ufeffStock Symbol"))
	suite.Equal("Buyer", NormalizeHeader("Buyer Broker"))
	suite.Equal("Quantity", NormalizeHeader("QTY"))
	suite.Equal("Unknown Col", NormalizeHeader(" Unknown Col"))
}

func (suite *IngestionTestSuite) TestNormalizeBroker() {
	suite.Equal("21", normalizeBroker("021"))
	suite.Equal("21", normalizeBroker("21.0"))
	suite.Equal("BRK-A", normalizeBroker(" BRK-A "))
	suite.Equal("", normalizeBroker("  "))
}

func (suite *IngestionTestSuite) TestDiscoverIgnoresOtherNames() {
	suite.writeRaw("2024-01-03", sampleSheet)
	suite.writeRaw("2024-01-02", sampleSheet)
	suite.Require().NoError(os.WriteFile(filepath.Join(suite.cfg.Data.RawPath, "notes.csv"), []byte("x"), 0o644))
	suite.Require().NoError(os.WriteFile(filepath.Join(suite.cfg.Data.RawPath, "floor_sheet_data_latest.csv"), []byte("x"), 0o644))

	files, err := DiscoverRaw(suite.cfg.Data.RawPath)
	suite.Require().NoError(err)
	suite.Len(files, 2)
	suite.Equal("2024-01-02", files[0].Date.String())
	suite.Equal("2024-01-03", files[1].Date.String())

	_, err = DiscoverRaw(filepath.Join(suite.cfg.Data.RawPath, "missing"))
	suite.True(errors.HasCode(err, errors.ErrCodeRawFileNotFound))
}

func (suite *IngestionTestSuite) TestRunIsIdempotent() {
	suite.writeRaw("2024-01-02", sampleSheet)

	ingestor := NewIngestor(suite.cfg, suite.log)

	summary, err := ingestor.Run(context.Background())
	suite.Require().NoError(err)
	suite.Equal(1, summary.Processed)
	suite.Equal(3, summary.RowsKept)
	suite.Equal(5, summary.RowsDrop)

	output := filepath.Join(suite.cfg.Data.ProcessedPath, "clean_sheet_data_2024-01-02.csv")
	first, err := os.ReadFile(output)
	suite.Require().NoError(err)

	// a second run skips the date
	summary, err = ingestor.Run(context.Background())
	suite.Require().NoError(err)
	suite.Equal(0, summary.Processed)
	suite.Equal(1, summary.Skipped)

	// reprocessing from scratch yields identical bytes
	suite.Require().NoError(os.Remove(output))
	_, err = ingestor.Run(context.Background())
	suite.Require().NoError(err)

	second, err := os.ReadFile(output)
	suite.Require().NoError(err)
	suite.Equal(first, second)
	suite.True(strings.HasPrefix(string(first), "SN,ContractNo,Symbol,Buyer,Seller,Quantity,Rate,Amount,Date\n"))
}

func (suite *IngestionTestSuite) TestRunStrictContinuesWithNextFile() {
	suite.cfg.Ingestion.Strict = true
	suite.writeRaw("2024-01-02", sampleSheet)
	suite.writeRaw("2024-01-03", "SN,ContractNo,Symbol,Buyer,Seller,Quantity,Rate,Amount\n1,9,NABIL,1,2,10,100,1000\n")

	summary, err := NewIngestor(suite.cfg, suite.log).Run(context.Background())
	suite.Require().NoError(err)
	suite.Equal(1, summary.Failed)
	suite.Equal(1, summary.Processed)
	suite.Equal(FileStatusFailed, summary.Files[0].Status)
	suite.True(errors.HasCode(summary.Files[0].Err, errors.ErrCodeMalformedRow))

	// the failed date has no output
	_, err = os.Stat(filepath.Join(suite.cfg.Data.ProcessedPath, "clean_sheet_data_2024-01-02.csv"))
	suite.True(os.IsNotExist(err))
}

func (suite *IngestionTestSuite) TestRunWithoutRawFiles() {
	summary, err := NewIngestor(suite.cfg, suite.log).Run(context.Background())
	suite.Require().NoError(err)
	suite.Empty(summary.Files)
}

func (suite *IngestionTestSuite) TestRunRendersProgress() {
	suite.writeRaw("2024-01-02", sampleSheet)

	var buf bytes.Buffer
	_, err := NewIngestor(suite.cfg, suite.log, WithProgress(&buf)).Run(context.Background())
	suite.Require().NoError(err)
	suite.Contains(buf.String(), "Normalizing floor sheets")
}

func (suite *IngestionTestSuite) TestRunHonorsCancellation() {
	suite.writeRaw("2024-01-02", sampleSheet)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewIngestor(suite.cfg, suite.log).Run(ctx)
	suite.ErrorIs(err, context.Canceled)
}

func (suite *IngestionTestSuite) TestLoadCanonical() {
	suite.writeRaw("2024-01-03", "SN,ContractNo,Symbol,Buyer,Seller,Quantity,Rate,Amount\n1,9,NICA,1,2,10,100,1000\n2,10,NABIL,1,2,5,200,1000\n")
	suite.writeRaw("2024-01-02", sampleSheet)

	ingestor := NewIngestor(suite.cfg, suite.log)

	_, err := ingestor.LoadCanonical(context.Background())
	suite.True(errors.HasCode(err, errors.ErrCodeNoRawData))

	_, err = ingestor.Run(context.Background())
	suite.Require().NoError(err)

	trades, err := ingestor.LoadCanonical(context.Background())
	suite.Require().NoError(err)
	suite.Len(trades, 5)
	suite.Equal("2024-01-02", trades[0].Date.String())
	suite.Equal("NICA", trades[3].Symbol)
	suite.Equal("NABIL", trades[4].Symbol)
	suite.Equal(1000.0, trades[4].Amount)
}
