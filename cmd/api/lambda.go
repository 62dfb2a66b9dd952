package main

import (
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/lambda"
	proxycore "github.com/awslabs/aws-lambda-go-api-proxy/core"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"

	"clima/internal/core"
)

// runLambda serves API Gateway proxy events through the server router.
// lambda.Start blocks for the lifetime of the execution environment.
func runLambda(srv *core.Server, logger *slog.Logger) error {
	logger.Info("starting in Lambda mode")
	lambda.Start(newLambdaAdapter(srv.Handler()).ProxyWithContext)
	return nil
}

func newLambdaAdapter(h http.Handler) *httpadapter.HandlerAdapter {
	return httpadapter.New(apiGatewayContext(h))
}

// apiGatewayContext copies the API Gateway request id and caller address
// onto the request so that the request-id and logging middleware see them.
// A client supplied X-Request-Id is kept.
func apiGatewayContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gw, ok := proxycore.GetAPIGatewayContextFromContext(r.Context()); ok {
			if gw.RequestID != "" && r.Header.Get("X-Request-Id") == "" {
				r.Header.Set("X-Request-Id", gw.RequestID)
			}
			if gw.Identity.SourceIP != "" {
				r.RemoteAddr = gw.Identity.SourceIP
			}
		}
		next.ServeHTTP(w, r)
	})
}
