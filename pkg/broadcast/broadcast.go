package broadcast

import "context"

// Event signals that feedback for a (folder, section) pair changed and
// any other live view of the same pair should refresh from the store.
type Event struct {
	FolderID string `json:"folderId"`
	Section  string `json:"section"`
	Channel  string `json:"channel"`
}

// Publisher fans an event out to interested subscribers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Subscriber registers interest in events for a specific folder/section
// key. An empty section subscribes to every section of the folder.
// Cancel the context to unsubscribe.
type Subscriber interface {
	Subscribe(ctx context.Context, folderID, section string) (<-chan Event, error)
}

// Bus combines both halves of the broadcast contract.
type Bus interface {
	Publisher
	Subscriber
}

func matches(event Event, folderID, section string) bool {
	if folderID != "" && event.FolderID != folderID {
		return false
	}
	if section != "" && event.Section != section {
		return false
	}
	return true
}
