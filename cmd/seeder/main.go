package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/poiesic/semsearch/ai"
	"github.com/poiesic/semsearch/ai/openai"
	"github.com/poiesic/semsearch/index"
)

// A small demo corpus: emoji identifiers with the words a user might type
// to find them.
var items = []index.Item{
	{Identifier: "📣", Content: "megaphone shout announce loudspeaker broadcast"},
	{Identifier: "🔇", Content: "muted speaker silence quiet no sound"},
	{Identifier: "🔊", Content: "loud speaker volume high sound audio"},
	{Identifier: "🐕", Content: "dog puppy pet bark loyal animal"},
	{Identifier: "🐈", Content: "cat kitten pet meow whiskers animal"},
	{Identifier: "🌧️", Content: "rain cloud drizzle wet weather storm"},
	{Identifier: "☀️", Content: "sun sunny bright warm clear sky"},
	{Identifier: "❄️", Content: "snowflake snow cold winter frost"},
	{Identifier: "🍕", Content: "pizza slice cheese pepperoni italian food"},
	{Identifier: "🍣", Content: "sushi fish rice japanese food dinner"},
	{Identifier: "☕", Content: "coffee cup hot drink caffeine morning"},
	{Identifier: "🚲", Content: "bicycle bike ride pedal wheels commute"},
	{Identifier: "🚗", Content: "car automobile drive road vehicle"},
	{Identifier: "✈️", Content: "airplane flight travel airport sky"},
	{Identifier: "🎻", Content: "violin strings classical music orchestra"},
	{Identifier: "🥁", Content: "drum beat rhythm percussion music"},
	{Identifier: "🎸", Content: "guitar strings rock music band"},
	{Identifier: "📚", Content: "books reading library study learn"},
	{Identifier: "✏️", Content: "pencil write draw sketch note"},
	{Identifier: "🔭", Content: "telescope stars astronomy observe night sky"},
	{Identifier: "🔬", Content: "microscope science lab research biology"},
	{Identifier: "🧵", Content: "thread sewing needle fabric stitch"},
	{Identifier: "⛵", Content: "sailboat sail wind sea ocean voyage"},
	{Identifier: "🏔️", Content: "mountain peak snow climb hike summit"},
	{Identifier: "🏖️", Content: "beach sand sea vacation summer relax"},
	{Identifier: "🕯️", Content: "candle flame wax light cozy"},
	{Identifier: "💡", Content: "light bulb idea bright electric lamp"},
	{Identifier: "🔑", Content: "key lock unlock door access secret"},
	{Identifier: "⏰", Content: "alarm clock time wake morning ring"},
	{Identifier: "🎉", Content: "party popper celebrate confetti birthday"},
	{Identifier: "😢", Content: "crying face sad tears upset unhappy"},
	{Identifier: "😂", Content: "laughing face joy funny tears hilarious"},
	{Identifier: "❤️", Content: "red heart love romance affection"},
	{Identifier: "🔥", Content: "fire flame hot burn lit blazing"},
	{Identifier: "🌈", Content: "rainbow colors sky arc after rain"},
	{Identifier: "⚡", Content: "lightning bolt electric thunder fast power"},
	{Identifier: "🌊", Content: "ocean wave water surf tide sea"},
	{Identifier: "🍀", Content: "four leaf clover luck fortune green"},
	{Identifier: "🎲", Content: "dice game chance random roll board"},
	{Identifier: "♟️", Content: "chess pawn strategy board game think"},
}

var (
	seedFileName   = flag.String("src", "", "JSON file of seed items")
	blobFileName   = flag.String("out", "index.embd", "output path for the embedding blob")
	metaFileName   = flag.String("meta-out", "index.meta.json", "output path for the metadata sidecar")
	embeddingHost  = flag.String("embedding-host", "http://localhost:11434/v1", "embedding service host URL")
	embeddingModel = flag.String("embedding-model", "embeddinggemma", "embedding model name")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

func main() {
	seed := items
	if *seedFileName != "" {
		data, err := os.ReadFile(*seedFileName)
		if err != nil {
			panic(err)
		}
		seed, err = index.DecodeItems(data)
		if err != nil {
			panic(err)
		}
	}

	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(*embeddingHost),
		ai.WithEmbeddingModel(*embeddingModel),
	)
	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		panic(err)
	}

	builder, err := index.NewBuilder(embedder, index.WithPoolSize(4))
	if err != nil {
		panic(err)
	}
	defer builder.Release()

	ctx := context.Background()
	blob, meta, err := builder.Build(ctx, seed)
	if err != nil {
		panic(err)
	}

	metaData, err := index.EncodeMeta(meta)
	if err != nil {
		panic(err)
	}

	if err := os.WriteFile(*blobFileName, blob, 0o644); err != nil {
		panic(err)
	}
	if err := os.WriteFile(*metaFileName, metaData, 0o644); err != nil {
		panic(err)
	}

	slog.Info("seeded index", "items", len(seed), "blob", *blobFileName, "meta", *metaFileName)
}
