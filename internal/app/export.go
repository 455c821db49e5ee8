package app

import (
	"strconv"
	"strings"

	"quizboard/internal/domain"
)

const csvHeader = "Rank,Name,Email,Score,Completion Time (seconds),Accuracy (%)"

// ExportCSV renders ranked entries as CSV. Name and email are always quoted so
// embedded commas survive; numeric columns are not.
func ExportCSV(entries []domain.LeaderboardEntry) string {
	var b strings.Builder
	b.WriteString(csvHeader)
	b.WriteByte('\n')
	for i, entry := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strconv.Itoa(entry.Rank))
		b.WriteByte(',')
		b.WriteString(quoteCSV(entry.Name))
		b.WriteByte(',')
		b.WriteString(quoteCSV(entry.Email))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(entry.Score))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(entry.CompletionTime))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(entry.Accuracy))
	}
	return b.String()
}

func quoteCSV(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
