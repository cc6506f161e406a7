package postconfirm

import (
	"context"
	"strings"

	"github.com/ietf-svn-conversion/postconfirm/framework/address"
	"github.com/ietf-svn-conversion/postconfirm/framework/log"
)

// Decider is the session state machine: it consumes one message's envelope,
// headers and (lazily) body, and produces exactly one Verdict. It never
// panics or otherwise fails the session -- every error it encounters along
// the way is logged and absorbed into a conservative verdict.
type Decider struct {
	Store      Store
	Stash      Stash
	DropFilter *DropFilter
	Emitter    *Emitter
	Relayer    Relayer
	Policy     RecipientPolicy
	Log        log.Logger
}

// Decide runs the decision tree described for the session decider. readBody
// is invoked at most once, and only on the branch that actually needs the
// body (stashing an unknown/confirm/expired sender's message).
func (d *Decider) Decide(
	ctx context.Context,
	envelopeFrom string,
	envelopeRecipients []string,
	headers []Header,
	subject string,
	readBody func(ctx context.Context) ([]byte, error),
) Verdict {
	from := lookupKey(envelopeFrom)

	recipients := make([]string, len(envelopeRecipients))
	for i, r := range envelopeRecipients {
		recipients[i] = address.Normalize(r)
	}

	challengeRecipients := d.Policy.ChallengeRecipients(recipients)
	if len(challengeRecipients) == 0 {
		return Accept
	}

	trimmedSubject := strings.TrimLeft(subject, " \t")
	isChallengeResponse := IsChallengeResponse(trimmedSubject)
	shouldDrop := d.DropFilter.Evaluate(headers)

	if shouldDrop {
		return Discard
	}

	sender := NewSender(d.Store, d.Stash, d.Log, from)

	if !isChallengeResponse {
		return d.decideNonResponse(ctx, sender, headers, recipients, challengeRecipients, trimmedSubject, readBody)
	}

	return d.decideResponse(ctx, sender, trimmedSubject)
}

func (d *Decider) decideNonResponse(
	ctx context.Context,
	sender *Sender,
	headers []Header,
	recipients, challengeRecipients []string,
	subject string,
	readBody func(ctx context.Context) ([]byte, error),
) Verdict {
	action := sender.GetAction(ctx)

	switch action {
	case ActionAccept:
		return Accept
	case ActionReject:
		return Reject
	case ActionDiscard:
		return Discard
	}

	// unknown | confirm | expired
	body, err := readBody(ctx)
	if err != nil {
		d.Log.Error("failed to read message body", err, "sender", sender.Email())
		return Discard
	}

	message := ReformMessage(headers, body)
	ref, err := sender.StashMessage(ctx, message, recipients)
	if err != nil {
		d.Log.Error("failed to stash message", err, "sender", sender.Email())
		return Discard
	}

	if action == ActionUnknown || action == ActionExpired {
		if err := d.Emitter.Emit(ctx, ChallengeInput{
			Sender:      sender.Email(),
			Subject:     subject,
			Recipients:  challengeRecipients,
			ChallengeID: ref,
			Reference:   ref,
		}); err != nil {
			d.Log.Error("failed to emit challenge", err, "sender", sender.Email())
		}
	}

	return Discard
}

func (d *Decider) decideResponse(ctx context.Context, sender *Sender, subject string) Verdict {
	action := sender.GetAction(ctx)
	if action != ActionConfirm {
		return Accept
	}

	ref, ok := ExtractChallengeRef(subject)
	if !ok || !sender.ValidateRef(ctx, ref) {
		return Reject
	}

	err := sender.UnstashMessages(ctx, func(recipients []string, message []byte) error {
		if err := d.Relayer.Sendmail(ctx, sender.Email(), recipients, message); err != nil {
			d.Log.Error("release relay failed", err, "sender", sender.Email())
			return err
		}
		return nil
	})
	if err != nil {
		d.Log.Error("release failed", err, "sender", sender.Email())
	}

	return Accept
}

// lookupKey normalizes a raw envelope address into the form used as the
// store key: angle-addr stripped, then case/NFC folded.
func lookupKey(raw string) string {
	bare := address.Normalize(raw)
	key, err := address.ForLookup(bare)
	if err != nil {
		return strings.ToLower(bare)
	}
	return key
}
