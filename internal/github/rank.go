package github

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ahmednasr/recruiter-bot/internal/models"
)

// Ranking weights: recency dominates stars, stars dominate forks.
const (
	recencyWeight   = 0.6
	starWeight      = 0.3
	forkWeight      = 0.1
	recencyHalfLife = 90 * 24 * time.Hour
)

// Rank scores repos and sorts them best first. The order is total: equal
// scores fall back to name, then full name.
func Rank(repos []models.RepositorySummary, now time.Time) []models.RepositorySummary {
	maxStars, maxForks := 0, 0
	for _, r := range repos {
		maxStars = max(maxStars, r.Stars)
		maxForks = max(maxForks, r.Forks)
	}

	out := make([]models.RepositorySummary, len(repos))
	for i, r := range repos {
		r.Score = recencyWeight*recency(r.PushedAt, now) +
			starWeight*logShare(r.Stars, maxStars) +
			forkWeight*logShare(r.Forks, maxForks)
		out[i] = r
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		ni, nj := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if ni != nj {
			return ni < nj
		}
		return out[i].FullName < out[j].FullName
	})
	return out
}

// recency decays from 1 (pushed now) by half every recencyHalfLife.
// A repository that was never pushed scores 0.
func recency(pushed, now time.Time) float64 {
	if pushed.IsZero() {
		return 0
	}
	age := now.Sub(pushed)
	if age <= 0 {
		return 1
	}
	return math.Pow(0.5, float64(age)/float64(recencyHalfLife))
}

// logShare maps n into [0,1] relative to the largest value in the set.
func logShare(n, maxN int) float64 {
	if maxN <= 0 || n <= 0 {
		return 0
	}
	return math.Log1p(float64(n)) / math.Log1p(float64(maxN))
}
