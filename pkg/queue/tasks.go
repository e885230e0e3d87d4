package queue

import (
	"errors"
	"fmt"
)

const DefaultPriority = 1

// A retraction shares its creation's priority so the two are delivered in
// publish order.
const (
	followPriority  = 5
	likePriority    = 4
	commentPriority = 6
)

const (
	TaskFollow   = "follow"
	TaskUnfollow = "unfollow"
	TaskLike     = "like"
	TaskDislike  = "dislike"
	TaskComment  = "comment"
)

var ErrMalformedTask = errors.New("malformed notification task")

// Task is the decoded form of a notification task. UserID is the recipient
// and FromUserID the actor.
type Task struct {
	Type       string
	UserID     string
	FromUserID string
	PostID     string
}

func newTask(taskType, recipientID, actorID, postID string, priority int) map[string]interface{} {
	task := map[string]interface{}{
		"type":         taskType,
		"user_id":      recipientID,
		"from_user_id": actorID,
		"priority":     priority,
	}
	if postID != "" {
		task["post_id"] = postID
	}
	return task
}

func FollowTask(actorID, recipientID string) map[string]interface{} {
	return newTask(TaskFollow, recipientID, actorID, "", followPriority)
}

func UnfollowTask(actorID, recipientID string) map[string]interface{} {
	return newTask(TaskUnfollow, recipientID, actorID, "", followPriority)
}

func LikeTask(actorID, recipientID, postID string) map[string]interface{} {
	return newTask(TaskLike, recipientID, actorID, postID, likePriority)
}

func DislikeTask(actorID, recipientID, postID string) map[string]interface{} {
	return newTask(TaskDislike, recipientID, actorID, postID, likePriority)
}

func CommentTask(actorID, recipientID, postID string) map[string]interface{} {
	return newTask(TaskComment, recipientID, actorID, postID, commentPriority)
}

// ParseTask validates a raw task as received from the queue.
func ParseTask(raw map[string]interface{}) (Task, error) {
	var t Task
	var ok bool

	if t.Type, ok = raw["type"].(string); !ok || t.Type == "" {
		return Task{}, fmt.Errorf("%w: missing type", ErrMalformedTask)
	}
	if t.UserID, ok = raw["user_id"].(string); !ok || t.UserID == "" {
		return Task{}, fmt.Errorf("%w: missing user_id", ErrMalformedTask)
	}
	if t.FromUserID, ok = raw["from_user_id"].(string); !ok || t.FromUserID == "" {
		return Task{}, fmt.Errorf("%w: missing from_user_id", ErrMalformedTask)
	}
	t.PostID, _ = raw["post_id"].(string)

	switch t.Type {
	case TaskFollow, TaskUnfollow:
	case TaskLike, TaskDislike, TaskComment:
		if t.PostID == "" {
			return Task{}, fmt.Errorf("%w: %s task without post_id", ErrMalformedTask, t.Type)
		}
	default:
		return Task{}, fmt.Errorf("%w: unknown type %q", ErrMalformedTask, t.Type)
	}
	return t, nil
}
