// Package learner wires the learner dashboard's server resources onto the
// resource core and exposes one controller per screen.
//
// Every resource is declared as a resource.Descriptor in resources.go; the
// Registry registers them all with one Store so a single observer sees the
// whole event log. Namespaced resources (profile, dashboard, prices) are
// keyed by username, financial aid by program id.
//
// Controllers are constructed once per screen and handed to the UI:
//
//	reg, _ := learner.NewRegistry(store, client)
//	v, _ := learner.NewValidation()
//	profile, _ := learner.NewProfileController(reg, v, "ada", logger)
//	dash := learner.NewDashboardController(reg, "ada")
//
// Forms (profile, channel, email, financial aid) go through edit.Manager,
// so a draft with validation errors never reaches the server.
package learner
