package remote

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/proto"
)

// Serializer pairs the marshal/unmarshal functions a typed adapter uses for
// one request/response shape.
type Serializer[Req, Resp any] struct {
	MarshalRequest    func(Req) ([]byte, error)
	UnmarshalResponse func([]byte) (Resp, error)
}

// CallAdapter calls custom module operations with typed requests and
// responses instead of raw payload bytes (host side).
type CallAdapter[Req, Resp any] struct {
	client     *Client
	serializer Serializer[Req, Resp]
}

// NewCallAdapter creates a typed adapter over a client and serializer.
func NewCallAdapter[Req, Resp any](client *Client, serializer Serializer[Req, Resp]) *CallAdapter[Req, Resp] {
	return &CallAdapter[Req, Resp]{client: client, serializer: serializer}
}

// Call invokes a custom operation on the module.
func (a *CallAdapter[Req, Resp]) Call(ctx context.Context, op string, request Req) (Resp, error) {
	var zeroResp Resp

	requestBytes, err := a.serializer.MarshalRequest(request)
	if err != nil {
		return zeroResp, fmt.Errorf("calladapter: failed to marshal request for %s: %w", op, err)
	}

	responseBytes, err := a.client.Call(ctx, op, requestBytes)
	if err != nil {
		return zeroResp, err
	}

	resp, err := a.serializer.UnmarshalResponse(responseBytes)
	if err != nil {
		return zeroResp, fmt.Errorf("calladapter: failed to unmarshal response for %s: %w", op, err)
	}
	return resp, nil
}

// NewJSONCallAdapter creates a CallAdapter specialized for JSON payloads.
func NewJSONCallAdapter[Req, Resp any](client *Client) *CallAdapter[Req, Resp] {
	return NewCallAdapter(client, Serializer[Req, Resp]{
		MarshalRequest: func(req Req) ([]byte, error) {
			return json.Marshal(req)
		},
		UnmarshalResponse: func(data []byte) (Resp, error) {
			var resp Resp
			err := json.Unmarshal(data, &resp)
			return resp, err
		},
	})
}

// NewProtobufCallAdapter creates a CallAdapter specialized for protobuf
// payloads. newResp is a factory returning a fresh, non-nil response
// message to unmarshal into.
func NewProtobufCallAdapter[Req proto.Message, Resp proto.Message](
	client *Client,
	newResp func() Resp,
) *CallAdapter[Req, Resp] {
	return NewCallAdapter(client, Serializer[Req, Resp]{
		MarshalRequest: func(req Req) ([]byte, error) {
			return proto.Marshal(req)
		},
		UnmarshalResponse: func(data []byte) (Resp, error) {
			instance := newResp()
			if err := proto.Unmarshal(data, instance); err != nil {
				var zero Resp
				return zero, err
			}
			return instance, nil
		},
	})
}

// HandlerAdapter wraps a typed custom-operation handler into the raw Handler
// signature (module side).
type HandlerAdapter[Req, Resp any] struct {
	unmarshalReq func([]byte) (Req, error)
	marshalResp  func(Resp) ([]byte, error)
	typedHandler func(Req) (Resp, error)
	op           string
}

// NewHandlerAdapter creates a typed handler adapter for the named operation.
func NewHandlerAdapter[Req, Resp any](
	op string,
	unmarshalReq func([]byte) (Req, error),
	marshalResp func(Resp) ([]byte, error),
	typedHandler func(Req) (Resp, error),
) *HandlerAdapter[Req, Resp] {
	return &HandlerAdapter[Req, Resp]{
		unmarshalReq: unmarshalReq,
		marshalResp:  marshalResp,
		typedHandler: typedHandler,
		op:           op,
	}
}

// ToHandler converts the typed handler into the raw Handler signature.
func (ha *HandlerAdapter[Req, Resp]) ToHandler() Handler {
	return func(payload []byte) ([]byte, error) {
		req, err := ha.unmarshalReq(payload)
		if err != nil {
			return nil, fmt.Errorf("handler adapter for %s: failed to unmarshal request: %w", ha.op, err)
		}

		resp, err := ha.typedHandler(req)
		if err != nil {
			return nil, err
		}

		responseBytes, err := ha.marshalResp(resp)
		if err != nil {
			return nil, fmt.Errorf("handler adapter for %s: failed to marshal response: %w", ha.op, err)
		}
		return responseBytes, nil
	}
}

// NewJSONHandlerAdapter creates a HandlerAdapter specialized for JSON
// payloads.
func NewJSONHandlerAdapter[Req, Resp any](op string, typedHandler func(Req) (Resp, error)) *HandlerAdapter[Req, Resp] {
	return NewHandlerAdapter(op,
		func(data []byte) (Req, error) {
			var req Req
			err := json.Unmarshal(data, &req)
			return req, err
		},
		func(resp Resp) ([]byte, error) {
			return json.Marshal(resp)
		},
		typedHandler,
	)
}

// NewProtobufHandlerAdapter creates a HandlerAdapter specialized for
// protobuf payloads. newReq is a factory returning a fresh, non-nil request
// message to unmarshal into.
func NewProtobufHandlerAdapter[Req proto.Message, Resp proto.Message](
	op string,
	newReq func() Req,
	typedHandler func(Req) (Resp, error),
) *HandlerAdapter[Req, Resp] {
	return NewHandlerAdapter(op,
		func(data []byte) (Req, error) {
			instance := newReq()
			if err := proto.Unmarshal(data, instance); err != nil {
				var zero Req
				return zero, err
			}
			return instance, nil
		},
		func(resp Resp) ([]byte, error) {
			return proto.Marshal(resp)
		},
		typedHandler,
	)
}
