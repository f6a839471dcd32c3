package scrape

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// Event is a decoded invocation: either a direct payload or an API Gateway
// envelope whose body carries the payload.
type Event struct {
	Request Request
	Gateway bool
}

// ParseEvent detects the event shape by the presence of both "body" and
// "httpMethod". A gateway body may be a JSON string, an object or null.
func ParseEvent(raw []byte) (Event, error) {
	var ev Event
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ev, nil
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return ev, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	body, hasBody := keys["body"]
	_, hasMethod := keys["httpMethod"]
	if !hasBody || !hasMethod {
		if err := json.Unmarshal(raw, &ev.Request); err != nil {
			return ev, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
		return ev, nil
	}

	ev.Gateway = true
	payload, err := gatewayPayload(raw, body)
	if err != nil {
		return ev, err
	}
	if len(payload) == 0 {
		return ev, nil
	}
	if err := json.Unmarshal(payload, &ev.Request); err != nil {
		return ev, fmt.Errorf("%w: body: %v", ErrInvalidEvent, err)
	}
	return ev, nil
}

func gatewayPayload(raw []byte, body json.RawMessage) ([]byte, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}
	// body 直接是对象
	if body[0] != '"' {
		return body, nil
	}

	var req events.APIGatewayProxyRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	text := req.Body
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return nil, fmt.Errorf("%w: base64 body: %v", ErrInvalidEvent, err)
		}
		text = string(decoded)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return []byte(text), nil
}

// GatewayResponse wraps resp for API Gateway with a JSON body and permissive CORS.
func GatewayResponse(resp *Response) (events.APIGatewayProxyResponse, error) {
	body, err := resp.Marshal()
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return events.APIGatewayProxyResponse{
		StatusCode: resp.StatusCode(),
		Headers: map[string]string{
			"Content-Type":                "application/json",
			"Access-Control-Allow-Origin": "*",
		},
		Body: string(body),
	}, nil
}
