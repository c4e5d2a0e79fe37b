package store

import (
	"context"
	"embed"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"truco-table/client/loop"
)

//go:embed schema.sql
var schema embed.FS

type DB struct{ *pgxpool.Pool }

func Open(ctx context.Context, dsn string) (*DB, error) {
	p, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &DB{p}, nil
}

func (db *DB) Close()                         { db.Pool.Close() }
func (db *DB) Ping(ctx context.Context) error { return db.Pool.Ping(ctx) }

func Migrate(ctx context.Context, db *DB) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, string(sqlBytes))
	return err
}

/* -----------------------------
   Game history
------------------------------*/

// RecordGame stores a finished game. Recording the same session twice is a
// no-op.
func (db *DB) RecordGame(ctx context.Context, g loop.GameRecord) error {
	_, err := db.Exec(ctx, `
		INSERT INTO games(session_id, target_score, my_score, opp_score, won,
		                  hands, my_tricks, opp_tricks, my_folds, opp_folds, refusals, ended_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (session_id) DO NOTHING
	`, g.Session, g.TargetScore, g.MyScore, g.OpponentScore, g.Won,
		g.Tally.Hands, g.Tally.MyTricks, g.Tally.OpponentTricks,
		g.Tally.MyFolds, g.Tally.OpponentFolds, g.Tally.Refusals, g.EndedAt)
	return err
}

// Game returns one recorded game, or false when the session is unknown.
func (db *DB) Game(ctx context.Context, session uuid.UUID) (loop.GameRecord, bool, error) {
	row := db.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE session_id = $1`, session)
	g, err := scanGame(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return loop.GameRecord{}, false, nil
	}
	if err != nil {
		return loop.GameRecord{}, false, err
	}
	return g, true, nil
}

// RecentGames lists the latest games, newest first.
func (db *DB) RecentGames(ctx context.Context, limit int) ([]loop.GameRecord, error) {
	rows, err := db.Query(ctx, `
		SELECT `+gameColumns+`
		  FROM games
		 ORDER BY ended_at DESC
		 LIMIT $1
	`, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []loop.GameRecord{}
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

type Record struct {
	Games  int `json:"games"`
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Hands  int `json:"hands"`
}

func (r Record) WinRate() float64 {
	if r.Games <= 0 {
		return 0
	}
	return float64(r.Wins) / float64(r.Games)
}

// Totals aggregates every recorded game.
func (db *DB) Totals(ctx context.Context) (Record, error) {
	var r Record
	err := db.QueryRow(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE won),
		       count(*) FILTER (WHERE NOT won),
		       COALESCE(sum(hands), 0)
		  FROM games
	`).Scan(&r.Games, &r.Wins, &r.Losses, &r.Hands)
	return r, err
}

const gameColumns = `session_id, target_score, my_score, opp_score, won,
	hands, my_tricks, opp_tricks, my_folds, opp_folds, refusals, ended_at`

func scanGame(row pgx.Row) (loop.GameRecord, error) {
	var (
		g     loop.GameRecord
		ended time.Time
	)
	err := row.Scan(&g.Session, &g.TargetScore, &g.MyScore, &g.OpponentScore, &g.Won,
		&g.Tally.Hands, &g.Tally.MyTricks, &g.Tally.OpponentTricks,
		&g.Tally.MyFolds, &g.Tally.OpponentFolds, &g.Tally.Refusals, &ended)
	g.EndedAt = ended.UTC()
	return g, err
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return 20
	case n > 200:
		return 200
	}
	return n
}
