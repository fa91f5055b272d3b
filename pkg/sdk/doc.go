// Package shelfscan embeds the detection decision engine in-process:
// the same confidence adjustment, dedup, tier policy, suggestions and
// result caching as the HTTP API, without running a server.
//
// The caller brings its own model predictions (from any detector) and a
// stable fingerprint of the source image:
//
//	client, _ := shelfscan.New(
//	    shelfscan.WithCatalogFile("config/products.yaml"),
//	    shelfscan.WithThresholds(75, 50, 25),
//	)
//	defer client.Close()
//
//	ev, _ := client.Evaluate(ctx, preds, fingerprint)
//	if ev.Outcome == shelfscan.OutcomeAutoAccept {
//	    cart.Add(ev.Detections[0].Barcode)
//	}
package shelfscan
