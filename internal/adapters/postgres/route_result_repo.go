package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mbenedetti/percorsi/internal/core/domain"
)

// RouteResultRepo implements ports.RouteResultRepository with pgx.
// Polylines are stored as GeoJSON LineStrings in lon-lat order.
type RouteResultRepo struct {
	db *DB
}

// NewRouteResultRepo creates a new RouteResultRepo.
func NewRouteResultRepo(db *DB) *RouteResultRepo {
	return &RouteResultRepo{db: db}
}

// InsertBatch writes all route documents of a job using pgx.Batch.
// Re-running a job insert is a no-op per (job_id, route_id).
func (r *RouteResultRepo) InsertBatch(ctx context.Context, results []domain.RouteResult) error {
	if len(results) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, res := range results {
		polyline, err := encodePolyline(res.Polyline)
		if err != nil {
			return fmt.Errorf("route %d: %w", res.RouteID, err)
		}
		stats, err := json.Marshal(res.Stats)
		if err != nil {
			return fmt.Errorf("route %d stats: %w", res.RouteID, err)
		}
		batch.Queue(`
			INSERT INTO route_results (job_id, route_id, polyline, stats)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (job_id, route_id) DO NOTHING
		`, res.JobID, res.RouteID, polyline, stats)
	}

	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range results {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// ListByJob returns a page of route documents ordered by route ordinal
// plus the total count for the job.
func (r *RouteResultRepo) ListByJob(ctx context.Context, jobID string, limit, offset int) ([]domain.RouteResult, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx,
		`SELECT count(*) FROM route_results WHERE job_id = $1`, jobID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT job_id, route_id, polyline, stats
		FROM route_results
		WHERE job_id = $1
		ORDER BY route_id
		LIMIT $2 OFFSET $3
	`, jobID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []domain.RouteResult
	for rows.Next() {
		var (
			res      domain.RouteResult
			polyline []byte
			stats    []byte
		)
		if err := rows.Scan(&res.JobID, &res.RouteID, &polyline, &stats); err != nil {
			return nil, 0, err
		}
		if res.Polyline, err = decodePolyline(polyline); err != nil {
			return nil, 0, fmt.Errorf("route %d: %w", res.RouteID, err)
		}
		if err := json.Unmarshal(stats, &res.Stats); err != nil {
			return nil, 0, fmt.Errorf("route %d stats: %w", res.RouteID, err)
		}
		results = append(results, res)
	}
	return results, total, rows.Err()
}

func encodePolyline(points []domain.GeoPoint) ([]byte, error) {
	ls := make(orb.LineString, len(points))
	for i, p := range points {
		ls[i] = orb.Point{p.Lon, p.Lat}
	}
	return json.Marshal(geojson.NewGeometry(ls))
}

func decodePolyline(data []byte) ([]domain.GeoPoint, error) {
	geom, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("decode polyline: %w", err)
	}
	ls, ok := geom.Geometry().(orb.LineString)
	if !ok {
		return nil, fmt.Errorf("polyline is not a linestring")
	}

	points := make([]domain.GeoPoint, len(ls))
	for i, pt := range ls {
		points[i] = domain.GeoPoint{Lat: pt[1], Lon: pt[0]}
	}
	return points, nil
}
