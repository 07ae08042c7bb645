package domain

import "sort"

// Puntos por acierto y penalización por fallo del trust score.
const (
	trustPerWin  = 5
	trustPerLoss = 2
)

// Rank es un escalón de la escalera de reputación.
type Rank struct {
	Name  string
	Score int // umbral mínimo de trust score
}

var (
	RankInitiate = Rank{Name: "Initiate", Score: 0}
	RankAnalyst  = Rank{Name: "Analyst", Score: 30}
	RankSigma    = Rank{Name: "Sigma", Score: 75}
	RankApex     = Rank{Name: "Apex", Score: 150}
)

// ranks está ordenada por umbral ascendente.
var ranks = []Rank{RankInitiate, RankAnalyst, RankSigma, RankApex}

// Ranks devuelve la escalera completa, de menor a mayor.
func Ranks() []Rank {
	out := make([]Rank, len(ranks))
	copy(out, ranks)
	return out
}

// ComputeTrustScore es la única fórmula de reputación: wins×5 − losses×2.
func ComputeTrustScore(wins, losses int) int {
	return wins*trustPerWin - losses*trustPerLoss
}

// GetRank devuelve el escalón de mayor umbral que no supera el score.
// Scores negativos caen en Initiate.
func GetRank(score int) Rank {
	current := ranks[0]
	for _, r := range ranks[1:] {
		if r.Score > score {
			break
		}
		current = r
	}
	return current
}

// Next devuelve el escalón siguiente; false si r ya es el más alto.
func (r Rank) Next() (Rank, bool) {
	for i, candidate := range ranks {
		if candidate.Name == r.Name && i+1 < len(ranks) {
			return ranks[i+1], true
		}
	}
	return Rank{}, false
}

// UserStats son las estadísticas de reputación de un usuario.
type UserStats struct {
	Address    string
	Wins       int
	Losses     int
	TotalBets  int     // wins + losses
	Accuracy   float64 // 0–100
	TrustScore int
}

// NewUserStats deriva TotalBets, Accuracy y TrustScore.
func NewUserStats(address string, wins, losses int) UserStats {
	s := UserStats{
		Address:    address,
		Wins:       wins,
		Losses:     losses,
		TotalBets:  wins + losses,
		TrustScore: ComputeTrustScore(wins, losses),
	}
	if s.TotalBets > 0 {
		s.Accuracy = float64(wins) / float64(s.TotalBets) * 100
	}
	return s
}

// UserStatsFromPortfolio construye las estadísticas de ranking de un portfolio.
func UserStatsFromPortfolio(address string, p PortfolioStats) UserStats {
	return NewUserStats(address, p.Wins, p.Losses)
}

// LeaderboardEntry es una fila del leaderboard.
type LeaderboardEntry struct {
	Position int // 1-based
	Stats    UserStats
	Rank     Rank
}

// RankLeaderboard ordena por trust score desc y luego total de apuestas desc.
// El sort es estable: empates exactos conservan el orden de entrada.
func RankLeaderboard(users []UserStats) []LeaderboardEntry {
	ordered := make([]UserStats, len(users))
	copy(ordered, users)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].TrustScore != ordered[j].TrustScore {
			return ordered[i].TrustScore > ordered[j].TrustScore
		}
		return ordered[i].TotalBets > ordered[j].TotalBets
	})

	entries := make([]LeaderboardEntry, len(ordered))
	for i, u := range ordered {
		entries[i] = LeaderboardEntry{
			Position: i + 1,
			Stats:    u,
			Rank:     GetRank(u.TrustScore),
		}
	}
	return entries
}
