// Package providers implements the Reviewer interface for each supported LLM
// provider.
//
// Supported providers: Anthropic (Claude), OpenAI (GPT), Google (Gemini), and
// Ollama / LMStudio for local models.
//
// All providers share a common retry helper with exponential back-off; rate
// limits and 5xx responses are retried, auth failures are not. Responses that
// reject a prompt for exceeding the model's context window are classified
// separately: [ContextLimitInfo] exposes the token figures the provider
// reported so callers can split the request and retry in smaller pieces.
// HTTP clients are injected via a transport field so that tests can redirect
// calls to local httptest servers without making live API requests.
//
// Use [New] to obtain a Reviewer by provider name and model string.
package providers
