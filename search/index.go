package search

import (
	"context"
	"fmt"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	log "github.com/openfpp/registry-api-go/pkg/logger"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const defaultTimeout = 25 * time.Second

type index[T any] struct {
	connStr string
	name    string
}

func newIndex[T any](connStr, name string) *index[T] {
	return &index[T]{
		connStr: connStr,
		name:    name,
	}
}

func (i *index[T]) Bulk(ctx context.Context, items []Item[T]) error {
	if len(items) == 0 {
		return nil
	}

	var payload []byte
	for _, item := range items {
		payload = append(payload, []byte(`{"index":{"_index" : "`+i.name+`", "_id":"`+item.Id+`"}}`)...)
		payload = append(payload, '\n')
		source, err := jsoniter.Marshal(item.Source)
		if err != nil {
			return fmt.Errorf("marshal bulk item %s: %w", item.Id, err)
		}
		payload = append(payload, source...)
		payload = append(payload, '\n')
	}

	body, err := i.do(ctx, "POST", i.connStr+"/_bulk", payload)
	if err != nil {
		return err
	}

	var response struct {
		Errors bool `json:"errors"`
	}
	if err := jsoniter.Unmarshal(body, &response); err != nil {
		return err
	}
	if response.Errors {
		log.Logger().Error("bulk write reported item errors", zap.String("index", i.name))
		return fmt.Errorf("bulk write to %s reported item errors", i.name)
	}

	log.Logger().Debug("bulk write ok", zap.String("index", i.name), zap.Int("items", len(items)))
	return nil
}

func (i *index[T]) Search(ctx context.Context, query map[string]interface{}) (*Result[T], error) {
	payload, err := jsoniter.Marshal(query)
	if err != nil {
		return nil, err
	}

	body, err := i.do(ctx, "GET", i.connStr+"/"+i.name+"/_search", payload)
	if err != nil {
		return nil, err
	}

	var response Result[T]
	if err := jsoniter.Unmarshal(body, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

func (i *index[T]) Create(ctx context.Context) error {
	_, err := i.do(ctx, "PUT", i.connStr+"/"+i.name, nil)
	return err
}

func (i *index[T]) Drop(ctx context.Context) error {
	_, err := i.do(ctx, "DELETE", i.connStr+"/"+i.name, nil)
	return err
}

func (i *index[T]) Refresh(ctx context.Context) error {
	_, err := i.do(ctx, "POST", i.connStr+"/"+i.name+"/_refresh", nil)
	return err
}

func (i *index[T]) do(ctx context.Context, method, uri string, payload []byte) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	res := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(res)

	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")
	req.SetRequestURI(uri)
	if payload != nil {
		req.SetBody(payload)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultTimeout)
	}

	if err := fasthttp.DoDeadline(req, res, deadline); err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, uri, err)
	}

	if res.StatusCode() >= 300 {
		return nil, fmt.Errorf("%s %s: status %s", method, uri, strconv.Itoa(res.StatusCode()))
	}

	// The response buffer is reused after release; callers keep their own copy.
	body := make([]byte, len(res.Body()))
	copy(body, res.Body())
	return body, nil
}
