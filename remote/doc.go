// Package remote implements the cache's compute capabilities with the OpenAI
// API.
//
// Client embeds texts with the embeddings endpoint and generates definitions
// with chat completions. Its errors are classified for the retry policy:
// 429 responses are rate limits, 408 and 504 responses and network timeouts
// are timeouts, other server errors are unavailability, and everything else
// is permanent.
//
//	client, err := remote.New(remote.Config{APIKey: os.Getenv("OPENAI_API_KEY")})
//	if err != nil {
//	    return err
//	}
//	vec, err := single.GetOrCompute(ctx, "hola", client)
package remote
