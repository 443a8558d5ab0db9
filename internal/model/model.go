package model

import "time"

// Player is a registry entry. The registry is populated outside the weekly
// run; the pipeline only reads it.
type Player struct {
	ID   string `db:"id"`
	Name string `db:"name"`
}

// ---- Raw rows scraped from the player profile page ----

// RawRoundRow is one scraped round. Strokes-gained fields and numeric finish
// are pointers because the source sends null for rounds without data.
type RawRoundRow struct {
	EventName  string   `json:"event_name"`
	Date       string   `json:"date"` // "Jan 2, 2006"
	CourseName string   `json:"course_name"`
	FinNumeric *float64 `json:"fin_numeric"`
	FinText    string   `json:"fin_text"`
	Total      *float64 `json:"total"`
	OTT        *float64 `json:"ott"`
	App        *float64 `json:"app"`
	Arg        *float64 `json:"arg"`
	Putt       *float64 `json:"putt"`
	RoundScore *float64 `json:"round_score"`
}

// SkillCategory is one entry of the profile's skill breakdown. Perc is a
// percentile rank; Val is the absolute strokes-gained value, usually a
// signed string such as "+0.412".
type SkillCategory struct {
	Bin  string `json:"bin"`
	Perc any    `json:"perc"`
	Val  any    `json:"val"`
}

// SkillPayload is the profile page's skill block.
type SkillPayload struct {
	DGID        *int64          `json:"dg_id"`
	BreakSkills []SkillCategory `json:"break_skills"`
}

// PlayerData is everything fetched for one player in a single request cycle.
type PlayerData struct {
	Rounds []RawRoundRow
	Skills *SkillPayload
}

// Empty reports whether the fetch produced nothing usable.
func (d *PlayerData) Empty() bool {
	return d == nil || (len(d.Rounds) == 0 && d.Skills == nil)
}

// ---- Aggregated records ----

// TournamentResult is the canonical per-tournament record for one player.
// At most one exists per (PlayerID, TournamentName, TournamentDate).
type TournamentResult struct {
	PlayerID       string   `db:"pga_player_id"`
	TournamentName string   `db:"tournament_name"`
	CourseName     string   `db:"course_name"`
	TournamentDate string   `db:"tournament_date"` // YYYY-MM-DD
	FinishPosition *int     `db:"finish_position"`
	IsMadeCut      bool     `db:"is_made_cut"`
	TotalScore     *int     `db:"total_score"`
	SGTotal        *float64 `db:"strokes_gained_total"`
	SGPutting      *float64 `db:"strokes_gained_putting"`
	SGApproach     *float64 `db:"strokes_gained_approach"`
	SGAroundGreen  *float64 `db:"strokes_gained_around_green"`
	SGOffTee       *float64 `db:"strokes_gained_off_tee"`
}

// SkillSnapshot is a player's latest skill profile. It always replaces the
// previous snapshot in full; absent values are stored as NULL.
type SkillSnapshot struct {
	PlayerID string `db:"player_id"`
	DGID     *int64 `db:"dg_id"`

	DrivingOverall  *float64 `db:"driving_overall"`
	DrivingDistance *float64 `db:"driving_distance"`
	DrivingAccuracy *float64 `db:"driving_accuracy"`

	ApproachOverall  *float64 `db:"approach_overall"`
	Approach50To100  *float64 `db:"approach_50_100"`
	Approach100To150 *float64 `db:"approach_100_150"`
	Approach150To200 *float64 `db:"approach_150_200"`
	Approach200Plus  *float64 `db:"approach_200_plus"`

	AroundGreenOverall *float64 `db:"around_green_overall"`
	AroundGreenFairway *float64 `db:"around_green_fairway"`
	AroundGreenRough   *float64 `db:"around_green_rough"`
	AroundGreenBunker  *float64 `db:"around_green_bunker"`

	PuttingOverall *float64 `db:"putting_overall"`
	Putting2To5    *float64 `db:"putting_2_5_feet"`
	Putting5To30   *float64 `db:"putting_5_30"`
	Putting30Plus  *float64 `db:"putting_30_plus"`

	SGDriving     *float64 `db:"sg_driving"`
	SGApproach    *float64 `db:"sg_approach"`
	SGAroundGreen *float64 `db:"sg_around_green"`
	SGPutting     *float64 `db:"sg_putting"`

	UpdatedAt time.Time `db:"skills_updated_at"`
}

// ---- Field and run bookkeeping ----

// TournamentInfo describes the event a field was taken from.
type TournamentInfo struct {
	Name string
	Date string
}

// EventRef identifies an event on the external source.
type EventRef struct {
	EventID int
	Year    int
}

// UpdateRun records one weekly run.
type UpdateRun struct {
	ID            string     `db:"id"`
	Source        string     `db:"source"`
	StartedAt     time.Time  `db:"started_at"`
	FinishedAt    *time.Time `db:"finished_at"`
	Players       int        `db:"players"`
	TournamentsOK int        `db:"tournaments_ok"`
	SkillsOK      int        `db:"skills_ok"`
	Interrupted   bool       `db:"interrupted"`
}

// DBOverview is a lightweight summary for the summary command.
type DBOverview struct {
	Players         int     `db:"players"`
	ResultRows      int     `db:"result_rows"`
	PlayersWithRows int     `db:"players_with_rows"`
	Snapshots       int     `db:"snapshots"`
	EarliestResult  *string `db:"earliest_result"`
	LatestResult    *string `db:"latest_result"`
	Runs            int     `db:"runs"`
}
