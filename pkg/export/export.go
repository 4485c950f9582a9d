// Package export renders forecasts as downloadable CSV files.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mpapenbr/tirecast/pkg/model"
)

const ContentType = "text/csv"

var ErrNothingToExport = errors.New("no predictions to export")

var header = []string{"lap", "predicted_time", "confidence"}

// FileName returns the suggested download name, e.g.
// predictions_Monaco_GP_2024_lap10.csv
func FileName(track string, currentLap int) string {
	return fmt.Sprintf("predictions_%s_lap%d.csv",
		strings.ReplaceAll(strings.TrimSpace(track), " ", "_"), currentLap)
}

// Write emits one row per entry in the given order
func Write(w io.Writer, predictions []model.PredictionEntry) error {
	if len(predictions) == 0 {
		return ErrNothingToExport
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, p := range predictions {
		if err := cw.Write([]string{
			strconv.Itoa(p.Lap),
			strconv.FormatFloat(p.PredictedTime, 'f', -1, 64),
			strconv.FormatFloat(p.Confidence, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func Bytes(predictions []model.PredictionEntry) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, predictions); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes the CSV to name, replacing an existing file
func WriteFile(name string, predictions []model.PredictionEntry) error {
	data, err := Bytes(predictions)
	if err != nil {
		return err
	}
	return os.WriteFile(name, data, 0o644)
}
