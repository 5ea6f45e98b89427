/*
Copyright 2020 Gravitational, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package orchestrator

import (
	"context"

	"github.com/eucalyptus/calyptos/lib/constants"
	"github.com/eucalyptus/calyptos/lib/roles"
	"github.com/eucalyptus/calyptos/lib/run"

	"github.com/gravitational/trace"
)

// Prepare installs trust material and the agent on every host, runs the
// agent with an empty run list and collects the node documents it reports
func (o *Orchestrator) Prepare(ctx context.Context) (*PhaseResult, error) {
	r, err := o.startPhase(PhasePrepare)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	if err := o.loadNodes(r); err != nil {
		return r.finish(err)
	}
	all := o.Graph.AllHosts()
	return r.finish(r.runSteps(ctx, step{
		name:  string(PhasePrepare),
		hosts: all,
		assign: func(ctx context.Context) (run.Errors, error) {
			results, err := o.Driver.SyncTrust(ctx, all)
			if err != nil {
				return nil, trace.Wrap(err)
			}
			errs := make(run.Errors)
			r.collect("sync-trust", all, results, errs)
			if hosts := healthy(all, errs); len(hosts) != 0 {
				merge(errs, o.Store.Clear(ctx, hosts))
			}
			return errs, nil
		},
		apply: []action{
			{name: "push", fn: o.Driver.Push},
			{name: "install", fn: o.Driver.Install},
			{name: "apply", fn: o.Driver.Apply},
		},
	}))
}

// Bootstrap applies the foundational units to the role subsets in
// dependency order. Roles absent from the topology are skipped.
func (o *Orchestrator) Bootstrap(ctx context.Context) (*PhaseResult, error) {
	r, err := o.startPhase(PhaseBootstrap)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	steps, err := o.bootstrapSteps()
	if err != nil {
		return r.finish(err)
	}
	if err := o.loadNodes(r); err != nil {
		return r.finish(err)
	}
	return r.finish(r.runSteps(ctx, steps...))
}

// Provision verifies the bootstrap artifacts, applies the recipe table to
// every host in a single batch and then runs the finishing steps
func (o *Orchestrator) Provision(ctx context.Context) (*PhaseResult, error) {
	r, err := o.startPhase(PhaseProvision)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	steps, err := o.provisionSteps()
	if err != nil {
		return r.finish(err)
	}
	if err := o.VerifyBootstrapArtifacts(ctx); err != nil {
		return r.finish(err)
	}
	if err := o.loadNodes(r); err != nil {
		return r.finish(err)
	}
	return r.finish(r.runSteps(ctx, steps...))
}

// Uninstall applies the teardown units of the present roles to every host,
// deregisters all nodes of the environment and drops the node documents
func (o *Orchestrator) Uninstall(ctx context.Context) (*PhaseResult, error) {
	r, err := o.startPhase(PhaseUninstall)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	if err := o.loadNodes(r); err != nil {
		return r.finish(err)
	}
	all := o.Graph.AllHosts()
	var units []string
	for _, nuke := range []struct {
		role   roles.Role
		recipe string
	}{
		{roles.CLC, constants.RecipeNukeEucalyptus},
		{roles.RiakHead, constants.RecipeNukeRiak},
		{roles.MonBootstrap, constants.RecipeNukeCeph},
		{roles.HAProxy, constants.RecipeNukeHAProxy},
	} {
		if o.Graph.Has(nuke.role) {
			units = append(units, nuke.recipe)
		}
	}
	err = r.runSteps(ctx, step{
		name:   string(PhaseUninstall),
		hosts:  all,
		assign: o.assigner(all, assignment{hosts: all, units: units}),
		apply:  o.converge(),
	})
	if err != nil {
		return r.finish(err)
	}
	o.Progress.NextStep("Deregister nodes of %v", o.environment())
	if err := o.Inventory.BulkDeregister(ctx, o.environment()); err != nil {
		return r.finish(trace.Wrap(err))
	}
	return r.finish(nil)
}

// VerifyBootstrapArtifacts makes sure the primary controller has reported
// the cloud keys produced by the bootstrap phase
func (o *Orchestrator) VerifyBootstrapArtifacts(ctx context.Context) error {
	hosts := o.Graph.Hosts(roles.CLC)
	if len(hosts) == 0 {
		return trace.BadParameter("no primary controller in the topology")
	}
	host := hosts[0]
	attrs, err := o.Inventory.Attributes(ctx, host)
	if err != nil {
		if trace.IsNotFound(err) {
			return trace.Wrap(&BootstrapIncompleteError{Host: host, Missing: constants.CloudKeys})
		}
		return trace.Wrap(err)
	}
	keys, _ := lookup(attrs, constants.NormalKey, "eucalyptus", "cloud-keys").(map[string]interface{})
	var missing []string
	for _, key := range constants.CloudKeys {
		if _, ok := keys[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) != 0 {
		return trace.Wrap(&BootstrapIncompleteError{Host: host, Missing: missing})
	}
	o.WithField(constants.FieldHost, host).Debug("Found cloud keys.")
	return nil
}

func (o *Orchestrator) bootstrapSteps() ([]step, error) {
	all := o.Graph.AllHosts()
	var steps []step
	for _, role := range []roles.Role{roles.MonBootstrap, roles.RiakHead} {
		if !o.Graph.Has(role) {
			continue
		}
		units, err := o.Chef.Recipes(role)
		if err != nil {
			return nil, trace.Wrap(err)
		}
		steps = append(steps, o.roleStep(string(role), all, assignment{
			hosts: o.Graph.Hosts(role),
			units: units,
		}))
	}
	var datastores []assignment
	if o.Graph.Has(roles.MidoZookeeper) {
		datastores = append(datastores, assignment{
			hosts: o.Graph.Hosts(roles.MidoZookeeper),
			units: []string{constants.RecipeZookeeper},
		})
	}
	if o.Graph.Has(roles.MidoCassandra) {
		datastores = append(datastores, assignment{
			hosts: o.Graph.Hosts(roles.MidoCassandra),
			units: []string{constants.RecipeCassandra},
		})
	}
	if len(datastores) != 0 {
		steps = append(steps, o.roleStep("mido-zookeeper-cassandra", all, datastores...))
	}
	units, err := o.Chef.Recipes(roles.CLC)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	steps = append(steps, o.roleStep(string(roles.CLC), all, assignment{
		hosts: o.Graph.Hosts(roles.CLC),
		units: units,
	}))
	if o.Graph.Has(roles.Midolman) {
		steps = append(steps, o.roleStep(string(roles.Midolman), all, assignment{
			hosts: o.Graph.Hosts(roles.Midolman),
			units: []string{constants.RecipeMidolman},
		}))
	}
	return steps, nil
}

func (o *Orchestrator) provisionSteps() ([]step, error) {
	all := o.Graph.AllHosts()
	var table []assignment
	for _, entry := range o.Chef.Roles {
		hosts := o.Graph.Hosts(entry.Role)
		if len(hosts) == 0 {
			continue
		}
		table = append(table, assignment{hosts: hosts, units: entry.Recipes})
	}
	steps := []step{{
		name:   string(PhaseProvision),
		hosts:  all,
		assign: o.assigner(all, table...),
		apply:  o.converge(),
	}}
	if o.Graph.Has(roles.RiakHead) {
		steps = append(steps, o.roleStep("riak-merge", nil, assignment{
			hosts: o.Graph.Hosts(roles.RiakHead),
			units: []string{constants.RecipeRiakPlanCommit, constants.RecipeRiakMergeCreds},
		}))
	}
	steps = append(steps, o.roleStep("configure-cloud", nil, assignment{
		hosts: o.Graph.Hosts(roles.CLC),
		units: []string{constants.RecipeConfigureCloud},
	}))
	if o.Descriptor.OverlayEnabled() {
		if !o.Graph.Has(roles.MidonetAPI) {
			return nil, trace.BadParameter("overlay networking is enabled but no %v host is resolved", roles.MidonetAPI)
		}
		steps = append(steps, o.roleStep("create-first-resources", nil, assignment{
			hosts: o.Graph.Hosts(roles.MidonetAPI),
			units: []string{constants.RecipeCreateFirstResources},
		}))
	}
	return steps, nil
}

// roleStep returns the step that clears the run lists of the specified hosts,
// applies the assignments and runs the agent on the assigned hosts
func (o *Orchestrator) roleStep(name string, clear []string, assignments ...assignment) step {
	var hosts []string
	seen := make(map[string]struct{})
	for _, a := range assignments {
		for _, host := range a.hosts {
			if _, ok := seen[host]; !ok {
				seen[host] = struct{}{}
				hosts = append(hosts, host)
			}
		}
	}
	return step{
		name:   name,
		hosts:  hosts,
		assign: o.assigner(clear, assignments...),
		apply:  o.converge(),
	}
}

// loadNodes reports hosts that have not been contacted yet. These are
// bootstrapped when a run list is first assigned to them
func (o *Orchestrator) loadNodes(r *phaseRun) error {
	errs, err := o.Store.Load(o.Graph.AllHosts())
	if err != nil {
		return trace.Wrap(err)
	}
	for _, host := range errs.Keys() {
		r.WithField(constants.FieldHost, host).Info("Host has not been contacted yet.")
	}
	return nil
}

// runSteps executes steps in order stopping at the first failed step
func (r *phaseRun) runSteps(ctx context.Context, steps ...step) error {
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return trace.Wrap(err)
		}
		if err := r.runStep(ctx, s); err != nil {
			return trace.Wrap(err)
		}
	}
	return nil
}

// lookup returns the value at the specified path of nested attributes
func lookup(attrs map[string]interface{}, path ...string) interface{} {
	var value interface{} = attrs
	for _, key := range path {
		m, ok := value.(map[string]interface{})
		if !ok {
			return nil
		}
		value = m[key]
	}
	return value
}
