// Package http provides the admin and host API of the raid controller.
//
// Every route requires an "Authorization: Bearer <token>" header checked
// against the configured argon2id hash. The router exposes:
//   - GET /sessions, POST /sessions: list active actors, open a session. Body:
//     {"actor_id","groups","locale","is_admin","team"}. Responds with the
//     resolved raid.Snapshot.
//   - PUT /sessions/{id}, DELETE /sessions/{id}: replace session facts (a
//     group change re-resolves on the next tick) or end the session.
//   - GET /actors/{id}/status: cached raid state. POST /actors/{id}/refresh:
//     queue a forced re-resolution.
//   - POST /damage: arbitrate an application.DamageEvent and return the
//     application.DamageVerdict.
//   - GET /fire-origins, POST /fire-origins: live incendiary origins.
//   - GET /wipes, POST /wipes: wipe history and recording a wipe
//     ({"at","reason"}, both optional).
//   - GET /rules, PUT /rules: the active YAML rules document. PUT validates,
//     stores and applies the body.
//   - GET /notices: websocket stream of notices, optionally ?actor_id=.
//
// Errors use {"error_code","message","errors"}; validation failures are 422
// with field errors keyed by field name or rules document path.
package http
