package automatic

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/domino14/c4solver/stats"
)

// AnalyzeLogFile reads a move log written by StartCompVComp and summarizes
// the finished games in it, along with per-player move times.
func AnalyzeLogFile(filepath string) (string, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return "", err
	}
	defer file.Close()
	return AnalyzeLog(file)
}

func AnalyzeLog(rd io.Reader) (string, error) {
	r := csv.NewReader(rd)
	r.FieldsPerRecord = 6

	// Record looks like:
	// gameID,ply,player,column,ms,result
	summary := &Summary{}
	moveTimes := map[string]*stats.Statistic{}
	var names []string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if record[0] == "gameID" {
			continue
		}
		ply, err := strconv.Atoi(record[1])
		if err != nil {
			return "", err
		}
		ms, err := strconv.ParseFloat(record[4], 64)
		if err != nil {
			return "", err
		}
		name := record[2]
		if _, ok := moveTimes[name]; !ok {
			moveTimes[name] = &stats.Statistic{}
			names = append(names, name)
		}
		moveTimes[name].Push(ms)

		res := &GameResult{ID: record[0], Plies: ply}
		switch record[5] {
		case "":
			continue
		case "first":
			res.Winner = 0
		case "second":
			res.Winner = 1
		case "draw":
			res.Winner = -1
		default:
			return "", fmt.Errorf("game %s: unknown result %q", record[0], record[5])
		}
		summary.add(res)
	}

	var sb strings.Builder
	sb.WriteString(summary.String())
	for _, name := range names {
		st := moveTimes[name]
		fmt.Fprintf(&sb, "%v moves: %d  mean ms: %.3f  stdev: %.3f  max: %.3f\n",
			name, st.Iterations(), st.Mean(), st.Stdev(), st.Max())
	}
	return sb.String(), nil
}
