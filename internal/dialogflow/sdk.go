package dialogflow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	df "cloud.google.com/go/dialogflow/apiv2beta1"
	"cloud.google.com/go/dialogflow/apiv2beta1/dialogflowpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
)

// DefaultGRPCEndpoint is the global Dialogflow gRPC host.
const DefaultGRPCEndpoint = "dialogflow.googleapis.com:443"

// SDKClient calls detectIntent through the generated v2beta1 client. The
// client is built without ambient credentials; the bearer token for each
// call travels as request metadata.
type SDKClient struct {
	sessions *df.SessionsClient
}

// NewSDKClient dials the sessions service.
func NewSDKClient(ctx context.Context, endpoint string) (*SDKClient, error) {
	if endpoint == "" {
		endpoint = DefaultGRPCEndpoint
	}
	sessions, err := df.NewSessionsClient(ctx,
		option.WithEndpoint(endpoint),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(credentials.NewClientTLSFromCert(nil, ""))),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sessions client: %w", err)
	}
	return &SDKClient{sessions: sessions}, nil
}

// Close releases the underlying connection.
func (c *SDKClient) Close() error {
	return c.sessions.Close()
}

// DetectIntent sends one detectIntent call.
func (c *SDKClient) DetectIntent(ctx context.Context, bearer string, req DetectIntentRequest) (*QueryResult, error) {
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+bearer)

	pbReq := &dialogflowpb.DetectIntentRequest{
		Session: req.SessionPath(),
		QueryInput: &dialogflowpb.QueryInput{
			Input: &dialogflowpb.QueryInput_Text{
				Text: &dialogflowpb.TextInput{Text: req.QueryText, LanguageCode: req.LanguageCode},
			},
		},
	}
	if len(req.KnowledgeBaseNames) > 0 {
		pbReq.QueryParams = &dialogflowpb.QueryParameters{KnowledgeBaseNames: req.KnowledgeBaseNames}
	}

	resp, err := c.sessions.DetectIntent(ctx, pbReq)
	if err != nil {
		return nil, fromStatus(err)
	}
	return convertResult(resp.GetQueryResult())
}

// convertResult renders the protobuf result through its canonical JSON
// mapping so both transports share one QueryResult shape.
func convertResult(qr *dialogflowpb.QueryResult) (*QueryResult, error) {
	if qr == nil {
		return &QueryResult{}, nil
	}
	data, err := protojson.Marshal(qr)
	if err != nil {
		return nil, fmt.Errorf("encoding query result: %w", err)
	}
	var out QueryResult
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding query result: %w", err)
	}
	return &out, nil
}

var grpcToHTTP = map[codes.Code]int{
	codes.InvalidArgument:   http.StatusBadRequest,
	codes.Unauthenticated:   http.StatusUnauthorized,
	codes.PermissionDenied:  http.StatusForbidden,
	codes.NotFound:          http.StatusNotFound,
	codes.ResourceExhausted: http.StatusTooManyRequests,
	codes.Unavailable:       http.StatusServiceUnavailable,
	codes.Internal:          http.StatusInternalServerError,
}

// fromStatus converts a gRPC error into an APIError, or into a wrapped
// context error for deadlines and cancellations.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("calling detectIntent: %w", err)
	}
	switch st.Code() {
	case codes.DeadlineExceeded:
		return fmt.Errorf("calling detectIntent: %w", context.DeadlineExceeded)
	case codes.Canceled:
		return fmt.Errorf("calling detectIntent: %w", context.Canceled)
	}

	httpStatus, ok := grpcToHTTP[st.Code()]
	if !ok {
		httpStatus = http.StatusBadGateway
	}
	apiErr := &APIError{Status: httpStatus, Code: int(st.Code()), Message: st.Message()}
	if body, err := json.Marshal(map[string]any{
		"code":    int(st.Code()),
		"status":  st.Code().String(),
		"message": st.Message(),
	}); err == nil {
		apiErr.Body = body
	}
	return apiErr
}
