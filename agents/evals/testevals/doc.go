/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package testevals adapts *testing.T to evals.Observer, so span evaluators
// report straight into go test:
//
//	func TestTriageAgent(t *testing.T) {
//	    obs := evals.NewNamespacedObserver(func(name string) evals.Observer {
//	        return testevals.NewPrefix(t, name)
//	    })
//	    tree, err := collector.Capture(ctx, runAgent)
//	    if err != nil {
//	        t.Fatalf("runAgent() = %v", err)
//	    }
//	    for _, cb := range evals.BuildCallbacks(obs, map[string]evals.SpanTreeCallback{
//	        "tools":  evals.RequiredTools("search"),
//	        "errors": evals.NoErrors(),
//	    }) {
//	        cb(tree)
//	    }
//	}
package testevals
