// Package runtime wires chronocadence to the Google API, credentials and logging.
package runtime

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/gmail/v1"

	gc "github.com/joshsymonds/chronocadence/internal/gmail"
)

// googleClient adapts *gmail.Service to the narrow gc.Client interface.
type googleClient struct{ svc *gmail.Service }

func NewGoogleAPIClient(svc *gmail.Service) gc.Client { return &googleClient{svc} }

func (g *googleClient) List(ctx context.Context, q gc.Query, pageToken string, pageSize int) (gc.ListPage, error) {
	call := g.svc.Users.Messages.List("me").Q(q.Raw).MaxResults(int64(pageSize))
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	res, err := call.Context(ctx).Do()
	if err != nil {
		return gc.ListPage{}, err
	}
	ids := make([]gc.MessageID, 0, len(res.Messages))
	for _, m := range res.Messages {
		ids = append(ids, gc.MessageID(m.Id))
	}
	return gc.ListPage{IDs: ids, NextPageToken: res.NextPageToken}, nil
}

func (g *googleClient) GetMetadata(ctx context.Context, id gc.MessageID, headers []string) (gc.MessageMeta, error) {
	msg, err := g.svc.Users.Messages.Get("me", string(id)).
		Format("metadata").
		MetadataHeaders(headers...).
		Context(ctx).
		Do()
	if err != nil {
		return gc.MessageMeta{}, fmt.Errorf("get message %s: %w", id, err)
	}
	h := map[string]string{}
	if msg.Payload != nil {
		for _, hd := range msg.Payload.Headers {
			h[hd.Name] = hd.Value
		}
	}
	meta := gc.MessageMeta{ID: id, Headers: h}
	if msg.InternalDate > 0 {
		meta.InternalDate = time.UnixMilli(msg.InternalDate)
	}
	return meta, nil
}
