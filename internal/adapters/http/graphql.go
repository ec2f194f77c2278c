package http

import (
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/mbenedetti/percorsi/internal/core/domain"
)

// jobMap converts a job for GraphQL resolution. Times are RFC 3339
// strings because graphql-go has no native time scalar.
func jobMap(j *domain.Job) map[string]interface{} {
	m := map[string]interface{}{
		"id":           j.ID,
		"status":       j.Status(),
		"network_type": j.NetworkType,
		"return_code":  j.ReturnCode,
		"completed":    j.Completed,
		"total":        j.Total,
		"eta_seconds":  j.ETASeconds,
		"route_count":  j.RouteCount,
		"error":        j.Error,
		"time_start":   j.TimeStart.Format(time.RFC3339),
	}
	if j.TimeEnd != nil {
		m["time_end"] = j.TimeEnd.Format(time.RFC3339)
	}
	if j.Overall != nil {
		m["overall"] = overallMap(*j.Overall)
	}
	return m
}

func overallMap(o domain.OverallStatistics) map[string]interface{} {
	m := map[string]interface{}{
		"route_count":    o.RouteCount,
		"avg_distance_m": o.AvgDistanceMeters,
	}
	if o.Shortest != nil {
		m["shortest"] = map[string]interface{}{
			"route_id":   o.Shortest.RouteID,
			"distance_m": o.Shortest.DistanceMeters,
		}
	}
	if o.Longest != nil {
		m["longest"] = map[string]interface{}{
			"route_id":   o.Longest.RouteID,
			"distance_m": o.Longest.DistanceMeters,
		}
	}
	return m
}

func statsMap(s domain.RouteStatistics) map[string]interface{} {
	// road_types is a histogram; GraphQL wants a list, sorted for
	// stable output.
	types := make([]string, 0, len(s.RoadTypes))
	for t := range s.RoadTypes {
		types = append(types, t)
	}
	sort.Strings(types)

	shares := make([]map[string]interface{}, 0, len(types))
	for _, t := range types {
		shares = append(shares, map[string]interface{}{
			"road_type": t,
			"segments":  s.RoadTypes[t],
		})
	}

	return map[string]interface{}{
		"route_id":   s.RouteID,
		"distance_m": s.DistanceMeters,
		"turns":      s.Turns,
		"road_types": shares,
	}
}

func resultMap(r domain.RouteResult) map[string]interface{} {
	points := make([]map[string]interface{}, len(r.Polyline))
	for i, p := range r.Polyline {
		points[i] = map[string]interface{}{"lat": p.Lat, "lon": p.Lon}
	}
	return map[string]interface{}{
		"route_id": r.RouteID,
		"polyline": points,
		"stats":    statsMap(r.Stats),
	}
}

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	routeRefType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteRef",
		Fields: graphql.Fields{
			"route_id":   &graphql.Field{Type: graphql.Int},
			"distance_m": &graphql.Field{Type: graphql.Float},
		},
	})

	overallType := graphql.NewObject(graphql.ObjectConfig{
		Name: "OverallStatistics",
		Fields: graphql.Fields{
			"route_count":    &graphql.Field{Type: graphql.Int},
			"shortest":       &graphql.Field{Type: routeRefType},
			"longest":        &graphql.Field{Type: routeRefType},
			"avg_distance_m": &graphql.Field{Type: graphql.Float},
		},
	})

	roadShareType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RoadShare",
		Fields: graphql.Fields{
			"road_type": &graphql.Field{Type: graphql.String},
			"segments":  &graphql.Field{Type: graphql.Int},
		},
	})

	routeStatsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteStatistics",
		Fields: graphql.Fields{
			"route_id":   &graphql.Field{Type: graphql.Int},
			"distance_m": &graphql.Field{Type: graphql.Float},
			"turns":      &graphql.Field{Type: graphql.Int},
			"road_types": &graphql.Field{Type: graphql.NewList(roadShareType)},
		},
	})

	routeResultType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteResult",
		Fields: graphql.Fields{
			"route_id": &graphql.Field{Type: graphql.Int},
			"polyline": &graphql.Field{Type: graphql.NewList(geoPointType)},
			"stats":    &graphql.Field{Type: routeStatsType},
		},
	})

	jobType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Job",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: graphql.String},
			"status":       &graphql.Field{Type: graphql.String},
			"network_type": &graphql.Field{Type: graphql.String},
			"return_code":  &graphql.Field{Type: graphql.Int},
			"completed":    &graphql.Field{Type: graphql.Int},
			"total":        &graphql.Field{Type: graphql.Int},
			"eta_seconds":  &graphql.Field{Type: graphql.Float},
			"route_count":  &graphql.Field{Type: graphql.Int},
			"error":        &graphql.Field{Type: graphql.String},
			"overall":      &graphql.Field{Type: overallType},
			"time_start":   &graphql.Field{Type: graphql.String},
			"time_end":     &graphql.Field{Type: graphql.String},
		},
	})

	networkType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Network",
		Fields: graphql.Fields{
			"network_type": &graphql.Field{Type: graphql.String},
			"size_bytes":   &graphql.Field{Type: graphql.Int},
			"loaded":       &graphql.Field{Type: graphql.Boolean},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"job": &graphql.Field{
				Type:        jobType,
				Description: "Get a job by id",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					job, err := deps.Jobs.GetJob(p.Context, id)
					if err != nil {
						return nil, err
					}
					return jobMap(job), nil
				},
			},
			"jobs": &graphql.Field{
				Type:        graphql.NewList(jobType),
				Description: "List jobs newest-first",
				Args: graphql.FieldConfigArgument{
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					limit := p.Args["limit"].(int)
					offset := p.Args["offset"].(int)
					jobs, _, err := deps.Jobs.ListJobs(p.Context, limit, offset)
					if err != nil {
						return nil, err
					}
					result := make([]map[string]interface{}, len(jobs))
					for i := range jobs {
						result[i] = jobMap(&jobs[i])
					}
					return result, nil
				},
			},
			"routes": &graphql.Field{
				Type:        graphql.NewList(routeResultType),
				Description: "Computed routes of a job, ordered by route ordinal",
				Args: graphql.FieldConfigArgument{
					"job_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					jobID := p.Args["job_id"].(string)
					limit := p.Args["limit"].(int)
					offset := p.Args["offset"].(int)
					results, _, err := deps.Jobs.JobRoutes(p.Context, jobID, limit, offset)
					if err != nil {
						return nil, err
					}
					out := make([]map[string]interface{}, len(results))
					for i := range results {
						out[i] = resultMap(results[i])
					}
					return out, nil
				},
			},
			"networks": &graphql.Field{
				Type:        graphql.NewList(networkType),
				Description: "Road networks available for jobs",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.Graphs == nil {
						return nil, nil
					}
					return deps.Graphs.Networks()
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
