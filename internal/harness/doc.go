// Package harness runs waterfall scenarios against the engine and compares
// their traces with golden files.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: decline_then_accept
//	description: "Tier 1 declines, tier 2 accepts"
//	waterfall:
//	  id: chi-atl
//	  lane: { origin_zip: "60601", destination_zip: "30301", equipment_type: dry_van }
//	  tiers:
//	    - rank: 1
//	      response_window: 30m
//	      carriers: [A, B]
//	load: { id: L1, origin_zip: "60601", destination_zip: "30301", equipment_type: dry_van }
//	notify_failures: [B]
//	steps:
//	  - action: start
//	  - at: 5m
//	    action: respond
//	    carrier: A
//	    tier: 1
//	    outcome: decline
//	  - at: 31m
//	    action: tick
//	expect:
//	  status: completed
//	  result: unassigned
//	  tiers_visited: [1]
//	  offers: { A: declined, B: expired }
//
// # Steps
//
// Each step optionally moves the clock to "at" (an offset from the scenario
// start) and then applies one command:
//
//   - start: begin the execution for the scenario load
//   - respond: record a carrier's accept or decline for its offer at a tier
//   - tick: sweep every execution for expired offers
//   - sweep: sweep only the scenario load
//   - pause / resume: suspend and continue the execution
//
// A step that names expect_error must fail with that engine error code;
// any other step must succeed.
//
// # Deterministic Testing
//
// Every scenario runs on a fresh engine with a manual clock starting at
// testutil.Epoch, sequential execution IDs and a recording notifier. The
// trace leaves out offer IDs and execution IDs, so identical scenarios
// always render identical traces.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/decline_then_accept.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
