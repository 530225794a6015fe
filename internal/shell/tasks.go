package shell

import (
	"context"
	"fmt"

	"github.com/datachat/console/internal/catalog"
	"github.com/datachat/console/internal/chat"
	"github.com/datachat/console/internal/history"
	"github.com/datachat/console/internal/models"
	"github.com/datachat/console/internal/notify"
	"github.com/datachat/console/internal/upload"
)

func loadCatalog(api API) Task {
	return func(ctx context.Context) Result {
		docs, err := api.ListStructuredDocuments(ctx)
		return catalogLoaded{docs: docs, err: err}
	}
}

func loadSidebar(api API) Task {
	return func(ctx context.Context) Result {
		docs, err := api.ListStructuredDocuments(ctx)
		return sidebarLoaded{docs: docs, err: err}
	}
}

func loadHistory(api API) Task {
	return func(ctx context.Context) Result {
		entries, err := api.History(ctx)
		return historyLoaded{entries: entries, err: err}
	}
}

func submitUpload(api API, p *upload.PendingUpload) Task {
	return func(ctx context.Context) Result {
		rc, err := p.Open()
		if err != nil {
			return uploadFinished{sent: p, err: fmt.Errorf("open %s: %w", p.Name, err)}
		}
		defer rc.Close()

		res, err := api.UploadStructuredData(ctx, p.Name, rc)
		return uploadFinished{sent: p, res: res, err: err}
	}
}

func sendChat(api API, t chat.Ticket) Task {
	return func(ctx context.Context) Result {
		reply, err := api.Chat(ctx, t.Request)
		return chatReplied{ticket: t, reply: reply, err: err}
	}
}

func clearAllData(api API) Task {
	return func(ctx context.Context) Result {
		return dataCleared{err: api.ClearAllData(ctx)}
	}
}

type catalogLoaded struct {
	docs []models.StructuredDocument
	err  error
}

func (r catalogLoaded) apply(a *App) []Task {
	a.finishLoad()
	if r.err != nil {
		a.log.WithError(r.err).Warn("load structured documents")
		a.catalog = catalog.LoadFailed()
		a.notices.Error("Failed to load structured data documents: " + r.err.Error())
		return nil
	}
	a.catalog = catalog.FromDocuments(r.docs)
	return nil
}

// sidebarLoaded reconciles the chat session with the fetched catalog. It
// never starts another fetch.
type sidebarLoaded struct {
	docs []models.StructuredDocument
	err  error
}

func (r sidebarLoaded) apply(a *App) []Task {
	a.finishLoad()
	if r.err != nil {
		a.log.WithError(r.err).Warn("load chat sidebar")
		a.sidebar = catalog.LoadFailed()
		a.chat = chat.Reset(a.chat)
		a.notices.Error("Failed to load structured data documents for chat: " + r.err.Error())
		return nil
	}
	a.sidebar = catalog.FromDocuments(r.docs)
	a.chat = chat.Reconcile(a.chat, a.sidebar.Documents)
	return nil
}

type historyLoaded struct {
	entries []models.HistoryEntry
	err     error
}

func (r historyLoaded) apply(a *App) []Task {
	a.finishLoad()
	if r.err != nil {
		a.log.WithError(r.err).Warn("load history")
		a.history = history.State{Loaded: true, Failed: true}
		a.notices.Error("Failed to load chat history: " + r.err.Error())
		return nil
	}
	a.history = history.State{Entries: r.entries, Loaded: true}
	return nil
}

type uploadFinished struct {
	sent *upload.PendingUpload
	res  *models.UploadResult
	err  error
}

func (r uploadFinished) apply(a *App) []Task {
	a.sending = nil
	if r.err != nil || r.res == nil {
		a.upload = upload.FailSubmit(a.upload)
		a.releaseIfUnused(r.sent)
		msg := "empty response"
		if r.err != nil {
			msg = r.err.Error()
		}
		a.log.WithField("file", r.sent.Name).Warn("upload failed: " + msg)
		a.notices.Error("Structured data upload error: " + msg)
		return nil
	}

	a.upload = upload.CompleteSubmit(a.upload, r.sent, r.res)
	a.releaseIfUnused(r.sent)
	a.log.WithField("document_id", r.res.ID).Info("structured data uploaded")

	a.notices.Success(fmt.Sprintf("Structured data document %q uploaded successfully!", r.res.Filename))
	a.ask("Upload complete",
		fmt.Sprintf("Structured data document %q (%d rows) was uploaded. Start chatting with this file?",
			r.res.Filename, r.res.RowCount),
		startChat{id: r.res.ID, filename: r.res.Filename})
	return nil
}

type chatReplied struct {
	ticket chat.Ticket
	reply  *models.ChatReply
	err    error
}

func (r chatReplied) apply(a *App) []Task {
	var out chat.Outcome
	if r.err != nil || r.reply == nil {
		a.chat, out = chat.FailSend(a.chat, r.ticket, a.now())
		msg := "empty response"
		if r.err != nil {
			msg = r.err.Error()
		}
		a.notices.Error("Chat error: " + msg)
	} else {
		a.chat, out = chat.CompleteSend(a.chat, r.ticket, r.reply, a.now())
	}

	if out.Stale {
		a.log.WithField("document_id", r.ticket.Request.StructuredDocumentID).Debug("late chat reply dropped")
	}
	if out.StrategyChanged && a.chat.ActiveDocumentID != "" {
		a.notices.Show(notify.KindInfo,
			"The assistant will use internet search for the next questions about this data.",
			notify.DefaultDuration)
	}
	return nil
}

type dataCleared struct {
	err error
}

func (r dataCleared) apply(a *App) []Task {
	a.finishLoad()
	if r.err != nil {
		a.notices.Error("Failed to clear all data: " + r.err.Error())
		return nil
	}
	a.log.Info("all data cleared")
	a.notices.Success("All data and chat history were cleared.")
	a.resetAll()
	return a.navigate(SectionUpload)
}
