// Package cmapi provides types, interfaces, and helpers for working with the
// Cloud Manager API.
//
// # Overview
//
// The cmapi package defines the domain types (Program, Pipeline,
// PipelineExecution, Environment, Repository) and the interfaces of the
// resource family clients. A concrete implementation is provided by the
// cmclient package, which wires configuration, transport and authentication.
//
//	cli, err := cmclient.New(&cmapi.Config{
//	  OrgID:        "ORG@AdobeOrg",
//	  APIKey:       "client-id",
//	  ClientID:     "client-id",
//	  ClientSecret: "secret",
//	})
//	if err != nil { log.Fatal(err) }
//
//	execution, err := cli.Executions().Start(ctx, "1", "2")
//	if cmapi.IsBusy(err) {
//	  // the pipeline is already running
//	}
//
// # Errors
//
// Every failed call is translated into an *Error whose Kind depends on the
// operation and, for some operations, on the status code. Messages combine the
// request URL, the status and any detail parsed from the response body. Use
// IsKind, IsBusy, IsUnsupported or errors.Is with the Err* kind sentinels to
// branch on failures.
//
// # Pagination
//
// Listings the server pages return a Paginator, a forward-only sequence that
// fetches the next page when its buffer runs empty:
//
//	executions, err := cli.Executions().List(ctx, "1", "2", cmapi.PageCursor{Limit: 50})
//	for execution := range executions.Items() {
//	  _ = execution
//	}
//	if executions.Err() != nil { /* the listing ended early */ }
//
// A page fetch failure ends the sequence rather than returning an error from
// Next; Err reports it.
//
// # Events
//
// ValidSignature authenticates a notification against the x-adobe-signature
// header, Classify and DecodeEvent determine its kind, and WebhookHandler
// combines both into an http.Handler.
package cmapi
