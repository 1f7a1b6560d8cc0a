// Package cmclient builds a cmapi.Client for the Cloud Manager API.
//
// It layers configuration, HTTP transport and IMS authentication on top of the
// resource interfaces and types defined in the cmapi package. Most applications
// import cmclient to build a client and then use the returned cmapi.Client to
// reach the resource clients: Programs(), Pipelines(), Executions(),
// Environments() and Repositories().
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/cmapi/pkg/cmapi"
//	  "github.com/fivetwenty-io/cmapi/pkg/cmclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  // Technical account: tokens are fetched from IMS and renewed before they expire.
//	  cli, err := cmclient.NewWithClientCredentials("ORG@AdobeOrg", "client-id", "client-secret")
//	  if err != nil { log.Fatal(err) }
//
//	  // Or with an access token you already have:
//	  cli, err = cmclient.New(&cmapi.Config{
//	    OrgID:       "ORG@AdobeOrg",
//	    APIKey:      "client-id",
//	    AccessToken: "eyJhbGciOi...",
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  programs, err := cli.Programs().List(ctx)
//	  if err != nil { log.Fatal(err) }
//	  _ = programs
//	}
//
// Requests are attempted exactly once. A failed response is returned as a
// *cmapi.Error; transport failures are returned wrapped.
package cmclient
