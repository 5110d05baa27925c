// Package scalr is a client for the Scalr 2.x API with helpers for turning
// farm logs into classified server failures.
//
// Quick start:
//
//	c, err := scalr.New(scalr.WithCredentials(keyID, accessKey))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err := c.Call(ctx, "farms_list")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, farm := range resp.Items() {
//	    fmt.Println(farm["ID"], farm["Name"])
//	}
//
// Collect buckets a farm's system and scripting logs per server, and Diagnose
// classifies every failed script run against the registered failure patterns.
// A Client is safe for concurrent use.
package scalr
