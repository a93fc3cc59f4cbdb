package bot

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Response is the bot's answer. Column is 0-indexed. Scores is only set for
// analysis requests and holds nil for full columns.
type Response struct {
	Column int
	Score  int
	Exact  bool
	Nodes  uint64
	Scores []*int
}

type Client struct {
	// NATS connection
	nc       *nats.Conn
	channel  string
	attempts uint
}

func NewClient(nc *nats.Conn, channel string) *Client {
	return &Client{nc: nc, channel: channel, attempts: 3}
}

// ParseResponse decodes a bot reply. A reply carrying an error message is
// returned as an error.
func ParseResponse(data []byte) (*Response, error) {
	s := &structpb.Struct{}
	if err := proto.Unmarshal(data, s); err != nil {
		return nil, err
	}
	f := s.GetFields()
	if e, ok := f["error"]; ok {
		return nil, errors.New("Bot returned: " + e.GetStringValue())
	}
	if sv, ok := f["scores"]; ok {
		resp := &Response{Column: -1}
		for _, v := range sv.GetListValue().GetValues() {
			if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
				resp.Scores = append(resp.Scores, nil)
				continue
			}
			score := int(v.GetNumberValue())
			resp.Scores = append(resp.Scores, &score)
		}
		return resp, nil
	}
	return &Response{
		Column: int(f["column"].GetNumberValue()) - 1,
		Score:  int(f["score"].GetNumberValue()),
		Exact:  f["exact"].GetBoolValue(),
		Nodes:  uint64(f["nodes"].GetNumberValue()),
	}, nil
}

// RequestMove sends req to the bot and waits for the answer. Requests that
// find no bot listening are retried.
func (c *Client) RequestMove(ctx context.Context, req Request) (*Response, error) {
	data, err := req.Marshal()
	if err != nil {
		return nil, err
	}
	timeout := req.MaxTime
	if timeout == 0 {
		timeout = DefaultMaxTime
	}
	var res *nats.Msg
	err = retry.Do(func() error {
		rctx, cancel := context.WithTimeout(ctx, timeout+5*time.Second)
		defer cancel()
		var err error
		res, err = c.nc.RequestWithContext(rctx, c.channel, data)
		return err
	},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, nats.ErrNoResponders)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().Err(err).Uint("attempt", n+1).Msg("bot-request-retry")
		}),
	)
	if err != nil {
		if c.nc.LastError() != nil {
			log.Error().Msgf("%v for request", c.nc.LastError())
		}
		return nil, err
	}
	log.Debug().Int("bytes", len(res.Data)).Msg("bot-response")
	return ParseResponse(res.Data)
}
