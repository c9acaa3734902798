package kafka

// Topic definitions for Kafka event streaming
const (
	// TopicPredictionsGenerated carries every served prediction with its report
	TopicPredictionsGenerated = "predictions.generated"

	// TopicModelsPublished is written by the training pipeline after new
	// artifacts land on the shared model volume
	TopicModelsPublished = "models.published"
)
