// Package ui implements the Scholar terminal dashboard on Bubble Tea.
//
// The Model never talks to the network itself. It reads cached state from
// the learner controllers, starts operations through them and re-renders
// whenever the store signals a change. Long waits (saves, enrollments,
// coupon attachment) run inside tea.Cmd functions that block on the
// returned future and report back with a message.
//
// Screens:
//
//   - Dashboard: enrolled programs with adjusted prices, course run status
//     badges and financial aid state. "/" filters by program or course title.
//   - Forms: profile, financial aid, channel and email editors. Each field
//     shows its validation error only after the user left it or tried to
//     save; tab and shift+tab move between fields, ctrl+s saves.
//
// Banners in the header report offline polling and expired sessions. The
// theme cycles with "T" and is persisted with the other preferences.
package ui
