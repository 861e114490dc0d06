// Package chart uploads observation sessions to a twchart charting server so
// wind and weather events can be reviewed on a timeline. A session covers one
// controller run; stages split it into calm and windy periods and events mark
// individual gusts or faults.
package chart

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/calvinmclean/babyapi"
	"github.com/calvinmclean/twchart"
	"github.com/juju/errors"
)

type Probes []twchart.Probe

// Client is the upload side of one observation session. CreateSession must
// succeed before any of the other calls are useful.
type Client struct {
	client    *babyapi.Client[*session]
	sessionID string
}

// session satisfies the resource constraints of the typed babyapi client.
// NilResource supplies the Render/Bind stubs the client side never needs.
type session struct {
	*babyapi.NilResource
	twchart.Session
}

func (s session) GetID() string {
	return s.Session.GetID()
}

func NewClient(addr string) *Client {
	return &Client{client: babyapi.NewClient[*session](addr, "/sessions")}
}

// CreateSession opens a new observation session for the named station and
// remembers its ID for the follow-up calls.
func (c *Client) CreateSession(ctx context.Context, stationName string, probes Probes) (string, error) {
	resp, err := c.client.Post(ctx, &session{
		Session: twchart.Session{
			Name:   stationName + " observations",
			Date:   time.Now(),
			Probes: []twchart.Probe(probes),
		},
	})
	if err != nil {
		return "", errors.Annotatef(err, "creating session for %s", stationName)
	}

	c.sessionID = resp.Data.GetID()
	return c.sessionID, nil
}

// SetStartTime stamps the moment the station actually started streaming,
// which can be later than the session's creation.
func (c *Client) SetStartTime(ctx context.Context, startTime time.Time) error {
	_, err := c.client.Patch(ctx, c.sessionID, &session{Session: twchart.Session{
		StartTime: startTime,
	}})
	return errors.Trace(err)
}

// AddEvent records a point-in-time note, like a gust or a sensor fault.
func (c *Client) AddEvent(ctx context.Context, note string, now time.Time) error {
	return c.postAction(ctx, "add-event", twchart.Event{Note: note, Time: now})
}

// AddStage begins a named period of the session, like "calm" or "windy".
// The previous stage ends where the new one starts.
func (c *Client) AddStage(ctx context.Context, name string, now time.Time) error {
	return c.postAction(ctx, "add-stage", twchart.Stage{Name: name, Start: now})
}

// Done closes the session.
func (c *Client) Done(ctx context.Context) error {
	return c.postAction(ctx, "done", map[string]any{"time": time.Now()})
}

// postAction POSTs body to the session's named action endpoint. The server
// answers these with 204 and no payload.
func (c *Client) postAction(ctx context.Context, action string, body any) error {
	base, err := c.client.URL(c.sessionID)
	if err != nil {
		return errors.Trace(err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Annotatef(err, "encoding %s body", action)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/"+action, bytes.NewReader(payload))
	if err != nil {
		return errors.Trace(err)
	}
	req.Header.Add("Content-Type", "application/json")

	resp, err := c.client.MakeGenericRequest(req, nil)
	if err != nil {
		return errors.Annotatef(err, "posting %s", action)
	}
	if resp.Response.StatusCode != http.StatusNoContent {
		return errors.Errorf("unexpected status %d posting %s: %v", resp.Response.StatusCode, action, resp.Body)
	}
	return nil
}

// ParseProbes parses a probe mapping like "1=Temperature,2=Wind" into Probes.
func ParseProbes(input string) (Probes, error) {
	var probes Probes
	for _, entry := range strings.Split(input, ",") {
		pos, name, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, errors.Errorf("invalid probe entry: %q", entry)
		}

		n, err := strconv.Atoi(strings.TrimSpace(pos))
		if err != nil || n < 1 {
			return nil, errors.Errorf("invalid probe position: %q", pos)
		}
		probes = append(probes, twchart.Probe{
			Name:     strings.TrimSpace(name),
			Position: twchart.ProbePosition(n),
		})
	}
	return probes, nil
}
