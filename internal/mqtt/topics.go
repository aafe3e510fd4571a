package mqtt

import "fmt"

func TopicSubjectObservations(prefix string) string {
	return fmt.Sprintf("%s/subject/+/observation", prefix)
}

func TopicObservation(prefix, subjectID string) string {
	return fmt.Sprintf("%s/subject/%s/observation", prefix, subjectID)
}

func TopicAlert(prefix, subjectID string) string {
	return fmt.Sprintf("%s/subject/%s/alert", prefix, subjectID)
}
