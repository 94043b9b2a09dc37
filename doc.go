// Package kalibr exposes the Kalibr adaptive-routing Router as a chat model
// for prompt-orchestration pipelines. The Router selects the best-performing
// execution path (model + tools) for a named goal and learns from reported
// outcomes; this package only converts messages, delegates completions, and
// forwards outcome reports.
//
// Credentials are read from KALIBR_API_KEY and KALIBR_TENANT_ID when not set
// explicitly. A Router implementation must be registered (router.Register) or
// injected (WithRouterFactory) before calling New.
package kalibr
