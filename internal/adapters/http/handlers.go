package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mbenedetti/percorsi/internal/core/domain"
	"github.com/mbenedetti/percorsi/internal/pkg/geospatial"
)

// jobDoc is the API shape of a job: the stored record plus the derived
// status label.
type jobDoc struct {
	*domain.Job
	Status string `json:"status"`
}

func newJobDoc(j *domain.Job) jobDoc {
	return jobDoc{Job: j, Status: j.Status()}
}

// routeDoc is the API shape of one computed route: a GeoJSON
// LineString plus the per-route statistics.
type routeDoc struct {
	RouteID  int                    `json:"route_id"`
	Geometry *geojson.Geometry      `json:"geometry"`
	Stats    domain.RouteStatistics `json:"stats"`
}

func newRouteDoc(r domain.RouteResult) routeDoc {
	ls := make(orb.LineString, len(r.Polyline))
	for i, p := range r.Polyline {
		ls[i] = orb.Point{p.Lon, p.Lat}
	}
	return routeDoc{
		RouteID:  r.RouteID,
		Geometry: geojson.NewGeometry(ls),
		Stats:    r.Stats,
	}
}

// CreateJobHandler accepts a route-computation request, persists it,
// and queues it for execution. The response returns immediately with
// the job in the running state.
func CreateJobHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req domain.JobRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body: "+err.Error())
		}

		if req.NetworkType != "" && deps.Graphs != nil && !deps.Graphs.HasNetwork(req.NetworkType) {
			return errUnprocessable(c, "unknown network type: "+req.NetworkType)
		}

		job, err := deps.Jobs.CreateJob(c.Context(), req)
		if err != nil {
			return errFromDomain(c, err)
		}

		if err := deps.Runner.Submit(job); err != nil {
			return errFromDomain(c, err)
		}

		c.Set("Location", "/v1/jobs/"+job.ID)
		return c.Status(fiber.StatusAccepted).JSON(newJobDoc(job))
	}
}

// StartJobHandler is the legacy submission endpoint kept for clients
// of the original service. It takes the same payload as POST /v1/jobs
// but answers with the historical job_id envelope and defers network
// validation to execution, as the old service did.
func StartJobHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req domain.JobRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body: "+err.Error())
		}

		job, err := deps.Jobs.CreateJob(c.Context(), req)
		if err != nil {
			return errFromDomain(c, err)
		}
		if err := deps.Runner.Submit(job); err != nil {
			return errFromDomain(c, err)
		}

		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job_id": job.ID})
	}
}

// GetJobHandler returns a single job with its progress and, once
// finished, its overall statistics.
func GetJobHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "job id is required")
		}
		job, err := deps.Jobs.GetJob(c.Context(), id)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(newJobDoc(job))
	}
}

// ListJobsHandler returns jobs newest-first with offset/limit
// pagination.
func ListJobsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 20)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 {
			limit = 20
		}
		if limit > 100 {
			limit = 100
		}

		jobs, total, err := deps.Jobs.ListJobs(c.Context(), limit, offset)
		if err != nil {
			return errInternal(c, err.Error())
		}

		docs := make([]jobDoc, len(jobs))
		for i := range jobs {
			docs[i] = newJobDoc(&jobs[i])
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: docs, Pagination: pg})
	}
}

// CancelJobHandler requests cancellation of a queued or running job.
// Cancellation is asynchronous: the job transitions to failed once
// the worker observes the canceled context.
func CancelJobHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "job id is required")
		}

		job, err := deps.Jobs.GetJob(c.Context(), id)
		if err != nil {
			return errFromDomain(c, err)
		}
		if job.ReturnCode != domain.ReturnCodeRunning {
			return errConflict(c, "job already "+job.Status())
		}

		deps.Runner.Cancel(job.ID)
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"id":     job.ID,
			"status": "canceling",
		})
	}
}

// JobRoutesHandler returns the computed routes of a job as GeoJSON
// documents, paginated by route ordinal.
func JobRoutesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "job id is required")
		}
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 20)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 {
			limit = 20
		}
		if limit > 100 {
			limit = 100
		}

		job, err := deps.Jobs.GetJob(c.Context(), id)
		if err != nil {
			return errFromDomain(c, err)
		}

		results, total, err := deps.Jobs.JobRoutes(c.Context(), id, limit, offset)
		if err != nil {
			return errFromDomain(c, err)
		}

		docs := make([]routeDoc, len(results))
		for i := range results {
			docs[i] = newRouteDoc(results[i])
		}

		// Routes of a finished job never change again.
		if job.ReturnCode != domain.ReturnCodeRunning {
			c.Set("Cache-Control", "public, max-age=300")
		} else {
			c.Set("Cache-Control", "no-store")
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: docs, Pagination: pg})
	}
}

// ListNetworksHandler returns the road networks available for jobs.
func ListNetworksHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Graphs == nil {
			return errInternal(c, "graph store not available")
		}
		networks, err := deps.Graphs.Networks()
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(fiber.Map{
			"networks": networks,
			"count":    len(networks),
		})
	}
}

// NearestNodeHandler resolves the graph node closest to a coordinate.
// It previews how a request point would snap onto the network before
// submitting a job.
func NearestNodeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		networkType := c.Params("type")
		lat := c.QueryFloat("lat", 0)
		lon := c.QueryFloat("lon", 0)

		if lat == 0 && lon == 0 {
			return errBadRequest(c, "lat and lon are required")
		}
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			return errBadRequest(c, "lat/lon out of range")
		}
		if deps.Graphs == nil || deps.Index == nil {
			return errInternal(c, "graph store not available")
		}

		g, err := deps.Graphs.Network(c.Context(), networkType)
		if err != nil {
			return errFromDomain(c, err)
		}
		id, err := deps.Index.Nearest(c.Context(), g, lat, lon)
		if err != nil {
			return errFromDomain(c, err)
		}
		node, _ := g.Node(id)

		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(fiber.Map{
			"node_id":    node.ID,
			"lat":        node.Lat,
			"lon":        node.Lon,
			"distance_m": geospatial.Haversine(lat, lon, node.Lat, node.Lon),
		})
	}
}
