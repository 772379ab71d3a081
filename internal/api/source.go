package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/ispsrc/internal/api/models"
	"github.com/smazurov/ispsrc/internal/caps"
	"github.com/smazurov/ispsrc/internal/metrics"
	"github.com/smazurov/ispsrc/internal/source"
)

// registerSourceRoutes registers the capture source endpoints.
func (s *Server) registerSourceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-source",
		Method:      http.MethodGet,
		Path:        "/api/source",
		Summary:     "Source Status",
		Description: "Get the capture session state and counters",
		Tags:        []string{"source"},
		Security:    withAuth(),
		Errors:      []int{401, 503},
	}, func(_ context.Context, _ *struct{}) (*models.SourceResponse, error) {
		if s.source == nil {
			return nil, errNoSource()
		}
		return &models.SourceResponse{Body: s.sourceData()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-source-caps",
		Method:      http.MethodGet,
		Path:        "/api/source/caps",
		Summary:     "Source Caps",
		Description: "Get the formats the source can produce and the current peer caps",
		Tags:        []string{"source"},
		Security:    withAuth(),
		Errors:      []int{401, 503},
	}, func(_ context.Context, _ *struct{}) (*models.CapsResponse, error) {
		if s.source == nil {
			return nil, errNoSource()
		}
		return &models.CapsResponse{Body: s.capsData()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-source-latency",
		Method:      http.MethodGet,
		Path:        "/api/source/latency",
		Summary:     "Source Latency",
		Description: "Query capture latency. Fails while the device is closed or the frame rate is not fixed.",
		Tags:        []string{"source"},
		Security:    withAuth(),
		Errors:      []int{401, 409, 503},
	}, func(_ context.Context, _ *struct{}) (*models.LatencyResponse, error) {
		if s.source == nil {
			return nil, errNoSource()
		}
		lat, err := s.source.QueryLatency()
		if err != nil {
			return nil, latencyError(err)
		}
		return &models.LatencyResponse{
			Body: models.LatencyData{
				Live:  lat.Live,
				MinNS: int64(lat.Min),
				MaxNS: int64(lat.Max),
				Min:   lat.Min.String(),
				Max:   lat.Max.String(),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "put-source-peer",
		Method:        http.MethodPut,
		Path:          "/api/source/peer",
		Summary:       "Set Peer Caps",
		Description:   "Replace the downstream caps. The source renegotiates before its next frame.",
		Tags:          []string{"source"},
		Security:      withAuth(),
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{400, 401, 503},
	}, func(_ context.Context, input *models.PeerRequest) (*models.PeerResponse, error) {
		if s.source == nil {
			return nil, errNoSource()
		}
		var peer caps.Set
		if input.Body.Caps != "" {
			parsed, err := caps.Parse(input.Body.Caps)
			if err != nil {
				return nil, huma.Error400BadRequest("Invalid caps", err)
			}
			peer = parsed
		}
		s.source.SetPeer(peer)
		s.logger.Info("Peer caps updated", "peer", input.Body.Caps)
		return &models.PeerResponse{Body: s.capsData()}, nil
	})
}

func (s *Server) sourceData() models.SourceData {
	st := s.source.Status()
	data := models.SourceData{
		Name:                st.Name,
		Open:                st.Open,
		Started:             st.Started,
		Format:              st.Format,
		Offset:              st.Offset,
		RenegotiationAdjust: st.RenegotiationAdjust,
		PendingFormatChange: st.PendingFormatChange,
		ClockUntrusted:      st.ClockUntrusted,
	}
	if stats := metrics.GetCaptureStats(st.Name); stats != nil {
		data.Frames = stats.Frames
		data.LostFrames = stats.LostFrames
		data.CorruptedBuffers = stats.Corrupted
		data.Renegotiations = stats.Renegotiations
	}
	return data
}

func (s *Server) capsData() models.CapsData {
	data := models.CapsData{Caps: s.source.Caps().String()}
	if peer := s.source.Peer(); peer != nil {
		data.Peer = peer.String()
	}
	return data
}

func errNoSource() error {
	return huma.Error503ServiceUnavailable("No capture source configured")
}

// latencyError maps a failed latency query to an HTTP error. A refused
// query is a conflict with the source state, not a server fault.
func latencyError(err error) error {
	if errors.Is(err, source.ErrLatencyUnavailable) {
		return huma.Error409Conflict("Latency unavailable", err)
	}
	return huma.Error500InternalServerError("latency query failed", err)
}
