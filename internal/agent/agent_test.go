package agent

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/rcliao/discharge-care/internal/composer"
	"github.com/rcliao/discharge-care/internal/llm"
	"github.com/rcliao/discharge-care/internal/model"
	"github.com/rcliao/discharge-care/internal/patient"
	"github.com/rcliao/discharge-care/internal/retriever"
)

var quiet = log.New(io.Discard)

var directory = patient.NewJSONDirectory([]model.PatientRecord{
	{PatientID: "p1", Name: "John Smith", PrimaryDiagnosis: "CKD Stage 3", DischargeDate: "2024-01-15", Medications: []string{"Lisinopril 10mg"}},
	{PatientID: "p2", Name: "Jane Smith", PrimaryDiagnosis: "AKI", DischargeDate: "2024-02-01"},
	{PatientID: "p3", Name: "Maria Garcia", PrimaryDiagnosis: "CKD Stage 4", DischargeDate: "2024-03-10"},
})

type fakeModel struct {
	calls [][]llm.Message
	reply string
	err   error
}

func (f *fakeModel) Complete(_ context.Context, msgs []llm.Message) (string, error) {
	f.calls = append(f.calls, msgs)
	return f.reply, f.err
}

func (f *fakeModel) lastUser() string {
	msgs := f.calls[len(f.calls)-1]
	return msgs[len(msgs)-1].Content
}

type fakeRetriever struct {
	queries []string
	result  retriever.Result
}

func (f *fakeRetriever) Retrieve(_ context.Context, q string) retriever.Result {
	f.queries = append(f.queries, q)
	return f.result
}

type failingLookup struct{}

func (failingLookup) Lookup(context.Context, string) (patient.Match, error) {
	return patient.Match{Status: patient.StatusError}, patient.ErrLookup
}

func (failingLookup) All(context.Context) ([]model.PatientRecord, error) {
	return nil, patient.ErrLookup
}

func newReceptionist(m *fakeModel) *Receptionist {
	return NewReceptionist(ReceptionistDeps{
		Lookup:   directory,
		Composer: composer.New(m, composer.WithPersona(composer.Receptionist), composer.WithLogger(quiet)),
		Logger:   quiet,
	})
}

func TestReceptionist(t *testing.T) {
	ctx := context.Background()

	Convey("Given a receptionist waiting for a name", t, func() {
		m := &fakeModel{reply: "I'm glad to hear that! How has your appetite been?"}
		r := newReceptionist(m)
		So(r.Stage(), ShouldEqual, model.StageAskName)

		Convey("When a known patient introduces themselves", func() {
			reply := r.Respond(ctx, "Hi, I am John Smith")

			Convey("Then the greeting names the patient and diagnosis", func() {
				So(reply.Status, ShouldEqual, model.StatusContinue)
				So(reply.Text, ShouldContainSubstring, "John Smith")
				So(reply.Text, ShouldContainSubstring, "CKD Stage 3")
				So(reply.Text, ShouldContainSubstring, "2024-01-15")
				So(r.Stage(), ShouldEqual, model.StageFollowUp)
				So(r.Phase(), ShouldEqual, model.PhasePostGreeting)
				So(r.Patient().Name, ShouldEqual, "John Smith")
				So(m.calls, ShouldBeEmpty)
			})

			Convey("And then reports a medical concern", func() {
				reply := r.Respond(ctx, "I have chest pain")

				Convey("Then the receptionist routes to clinical without calling the model", func() {
					So(reply.Status, ShouldEqual, model.StatusRouteClinical)
					So(reply.Text, ShouldContainSubstring, "Clinical AI Agent")
					So(r.Stage(), ShouldEqual, model.StageRouteClinical)
					So(m.calls, ShouldBeEmpty)
				})
			})

			Convey("And then acknowledges the greeting", func() {
				reply := r.Respond(ctx, "ok")

				Convey("Then the reply is composed with acknowledgment guidance", func() {
					So(reply.Status, ShouldEqual, model.StatusContinue)
					So(reply.Text, ShouldEqual, "I'm glad to hear that! How has your appetite been?")
					So(m.lastUser(), ShouldContainSubstring, "Context Guidance: The patient acknowledged your greeting.")
					So(r.Phase(), ShouldEqual, model.PhaseOngoing)
				})

				Convey("And a later medication question gets medication guidance", func() {
					r.Respond(ctx, "when should I take my medication")
					So(m.lastUser(), ShouldContainSubstring, "Focus on medication-related guidance")
					So(len(m.calls[1]), ShouldEqual, 6)
				})
			})

			Convey("And the model fails", func() {
				m.err = errors.New("timeout")
				reply := r.Respond(ctx, "ok")

				Convey("Then an apology is returned and the phase is unchanged", func() {
					So(reply.Status, ShouldEqual, model.StatusClarify)
					So(reply.Text, ShouldEqual, msgReceptionError)
					So(r.Phase(), ShouldEqual, model.PhasePostGreeting)
					So(r.Stage(), ShouldEqual, model.StageFollowUp)
				})
			})

			Convey("And a different patient greets the receptionist", func() {
				reply := r.Respond(ctx, "Hello, my name is Maria Garcia")

				Convey("Then the state resets to the new patient", func() {
					So(reply.Text, ShouldContainSubstring, "Maria Garcia")
					So(r.Patient().Name, ShouldEqual, "Maria Garcia")
					So(r.Stage(), ShouldEqual, model.StageFollowUp)
				})
			})

			Convey("And greets while describing a symptom", func() {
				for _, msg := range []string{"Hey, I'm dizzy", "Hi, I am nauseous", "Hello, I'm bleeding"} {
					fresh := newReceptionist(&fakeModel{})
					fresh.Respond(ctx, "Hi, I am John Smith")
					reply := fresh.Respond(ctx, msg)

					So(reply.Status, ShouldEqual, model.StatusRouteClinical)
					So(fresh.Stage(), ShouldEqual, model.StageRouteClinical)
					So(fresh.Patient().Name, ShouldEqual, "John Smith")
				}
			})

			Convey("And greets with a phrase that is not a known name", func() {
				reply := r.Respond(ctx, "Hi, I'm tired of waiting")

				Convey("Then the current patient is kept", func() {
					So(reply.Status, ShouldEqual, model.StatusContinue)
					So(r.Patient().Name, ShouldEqual, "John Smith")
					So(r.Stage(), ShouldEqual, model.StageFollowUp)
					So(m.calls, ShouldHaveLength, 1)
				})
			})

			Convey("And the same patient introduces themselves again", func() {
				r.Respond(ctx, "ok")
				reply := r.Respond(ctx, "Hello, I'm John Smith")

				Convey("Then the conversation is not reset", func() {
					So(reply.Status, ShouldEqual, model.StatusContinue)
					So(r.Phase(), ShouldEqual, model.PhaseOngoing)
					So(r.History(), ShouldHaveLength, 6)
				})
			})

			Convey("And says goodbye", func() {
				reply := r.Respond(ctx, "goodbye")

				Convey("Then the conversation ends and the patient is forgotten", func() {
					So(reply.Status, ShouldEqual, model.StatusEnded)
					So(r.Stage(), ShouldEqual, model.StageAskName)
					So(r.Patient(), ShouldBeNil)
					So(r.History(), ShouldBeEmpty)

					next := r.Respond(ctx, "Zzyzx Nobody")
					So(next.Status, ShouldEqual, model.StatusClarify)
					So(r.Patient(), ShouldBeNil)
				})
			})
		})

		Convey("When the name is unknown", func() {
			reply := r.Respond(ctx, "Zzyzx Nobody")

			Convey("Then the receptionist asks to check the spelling", func() {
				So(reply.Status, ShouldEqual, model.StatusClarify)
				So(reply.Text, ShouldEqual, msgNotFound)
				So(r.Stage(), ShouldEqual, model.StageAskName)
			})
		})

		Convey("When the name is ambiguous", func() {
			reply := r.Respond(ctx, "my name is smith")

			Convey("Then the receptionist asks for a disambiguator", func() {
				So(reply.Status, ShouldEqual, model.StatusClarify)
				So(reply.Text, ShouldContainSubstring, "date of birth")
				So(r.Stage(), ShouldEqual, model.StageAskName)
			})
		})

		Convey("When the message has no name", func() {
			reply := r.Respond(ctx, "I'm feeling unwell")

			Convey("Then the receptionist asks for it", func() {
				So(reply.Text, ShouldEqual, msgAskName)
				So(reply.Status, ShouldEqual, model.StatusClarify)
			})
		})

		Convey("When a medical concern arrives before identification", func() {
			r.Respond(ctx, "my name is Nobody Known")
			reply := r.Respond(ctx, "I have chest pain")

			Convey("Then the receptionist never routes without a record", func() {
				So(reply.Status, ShouldNotEqual, model.StatusRouteClinical)
				So(r.Stage(), ShouldEqual, model.StageAskName)
			})
		})

		Convey("When the patient directory fails", func() {
			r := NewReceptionist(ReceptionistDeps{Lookup: failingLookup{}, Logger: quiet})
			reply := r.Respond(ctx, "John Smith")

			Convey("Then the failure degrades to a retry prompt", func() {
				So(reply.Status, ShouldEqual, model.StatusClarify)
				So(reply.Text, ShouldEqual, msgLookupFailed)
			})
		})
	})
}

func TestReceptionistResume(t *testing.T) {
	Convey("Given a receptionist that routed a patient to clinical", t, func() {
		r := newReceptionist(&fakeModel{reply: "Sure, I can help with that."})
		r.Respond(context.Background(), "I am John Smith")
		r.Respond(context.Background(), "my ankle is swollen")
		So(r.Stage(), ShouldEqual, model.StageRouteClinical)

		Convey("When the patient comes back", func() {
			r.Resume()
			reply := r.Respond(context.Background(), "can I reschedule my appointment?")

			Convey("Then the conversation continues with the same record", func() {
				So(r.Stage(), ShouldEqual, model.StageFollowUp)
				So(reply.Status, ShouldEqual, model.StatusContinue)
				So(r.Patient().Name, ShouldEqual, "John Smith")
			})
		})
	})
}

var john = &model.PatientRecord{Name: "John Smith", PrimaryDiagnosis: "CKD Stage 3", DischargeDate: "2024-01-15"}

func TestClinical(t *testing.T) {
	ctx := context.Background()

	Convey("Given no patient record", t, func() {
		_, err := NewClinical(nil, ClinicalDeps{Composer: composer.New(&fakeModel{})})

		Convey("Then construction is rejected", func() {
			So(errors.Is(err, ErrNoPatient), ShouldBeTrue)
		})
	})

	Convey("Given a clinical agent with knowledge base results", t, func() {
		m := &fakeModel{reply: "Swelling can mean fluid retention. Limit salt."}
		ret := &fakeRetriever{result: retriever.Result{
			Method: model.MethodKnowledgeBase,
			Passages: []model.Passage{
				{Text: "Edema is swelling caused by fluid retention.", Origin: model.OriginKnowledgeBase, Position: 4},
			},
		}}
		c, err := NewClinical(john, ClinicalDeps{Retriever: ret, Composer: composer.New(m, composer.WithLogger(quiet)), Logger: quiet})
		So(err, ShouldBeNil)

		Convey("When the patient asks about a symptom", func() {
			reply := c.Respond(ctx, "Why are my legs swollen?")

			Convey("Then the answer is grounded and cited", func() {
				So(ret.queries, ShouldResemble, []string{"Why are my legs swollen?"})
				So(reply.Status, ShouldEqual, model.StatusContinue)
				So(reply.Method, ShouldEqual, model.MethodKnowledgeBase)
				So(reply.Text, ShouldStartWith, "Swelling can mean fluid retention.")
				So(reply.Text, ShouldEndWith, "Medical Knowledge Base (1 entries)")
				So(reply.Sources, ShouldHaveLength, 1)
				So(m.lastUser(), ShouldContainSubstring, "Edema is swelling")
				So(c.History(), ShouldHaveLength, 2)
			})

			Convey("And then asks what they just asked", func() {
				calls := len(m.calls)
				reply := c.Respond(ctx, "What did I just ask?")

				Convey("Then the agent answers from memory alone", func() {
					So(reply.Text, ShouldEqual, `You just asked: "Why are my legs swollen?"`)
					So(len(m.calls), ShouldEqual, calls)
					So(ret.queries, ShouldHaveLength, 1)
				})
			})
		})

		Convey("When nothing was retrieved", func() {
			ret.result = retriever.Result{Method: model.MethodNone}
			reply := c.Respond(ctx, "Is it normal to feel tired?")

			Convey("Then the reply carries the general disclaimer", func() {
				So(reply.Text, ShouldEndWith, strings.TrimPrefix(composer.Disclaimer, "\n\n"))
			})
		})

		Convey("When external sources came back empty", func() {
			ret.result = retriever.Result{
				Method:   model.MethodKnowledgeBase,
				Passages: []model.Passage{{Text: "Fatigue is common after discharge.", Origin: model.OriginKnowledgeBase}},
				Note:     retriever.NoExternalInfo,
			}
			c.Respond(ctx, "Is it normal to feel tired?")

			Convey("Then the model is told so", func() {
				So(m.lastUser(), ShouldContainSubstring, "Fatigue is common after discharge.")
				So(m.lastUser(), ShouldContainSubstring, "Note: "+retriever.NoExternalInfo)
			})
		})

		Convey("When the model fails", func() {
			m.err = errors.New("timeout")
			reply := c.Respond(ctx, "Why are my legs swollen?")

			Convey("Then an apology is returned and nothing is remembered", func() {
				So(reply.Status, ShouldEqual, model.StatusClarify)
				So(reply.Text, ShouldEqual, msgClinicalError)
				So(c.History(), ShouldBeEmpty)
			})
		})

		Convey("When asked for a summary before any question", func() {
			So(c.Respond(ctx, "what have we discussed?").Text, ShouldEqual, msgNoQuestions)
		})

		Convey("When the patient changes", func() {
			c.Respond(ctx, "Why are my legs swollen?")
			So(c.SetPatient(&model.PatientRecord{Name: "Maria Garcia"}), ShouldBeNil)

			Convey("Then the history starts fresh", func() {
				So(c.History(), ShouldBeEmpty)
				So(c.Patient().Name, ShouldEqual, "Maria Garcia")
				So(c.SetPatient(nil), ShouldEqual, ErrNoPatient)
			})
		})
	})
}

func TestClassifier(t *testing.T) {
	c := NewClassifier(nil)

	Convey("Given the default lexicon", t, func() {
		Convey("Medical concerns are detected on word boundaries", func() {
			So(c.HasMedicalConcern("I have chest pain"), ShouldBeTrue)
			So(c.HasMedicalConcern("my ankles are swelling"), ShouldBeTrue)
			So(c.HasMedicalConcern("feeling dizzy today"), ShouldBeTrue)
			So(c.HasMedicalConcern("I'm doing great"), ShouldBeFalse)
		})

		Convey("Ending phrases are detected", func() {
			So(c.IsConversationEnd("Goodbye!"), ShouldBeTrue)
			So(c.IsConversationEnd("ok that's all, thanks"), ShouldBeTrue)
			So(c.IsConversationEnd("my baby is fine"), ShouldBeFalse)
		})

		Convey("Administrative requests are detected", func() {
			So(c.IsAdministrative("Can I talk to Maria?"), ShouldBeTrue)
			So(c.IsAdministrative("I need to reschedule"), ShouldBeTrue)
			So(c.IsAdministrative("my kidneys hurt"), ShouldBeFalse)
		})

		Convey("Greetings with a name are detected", func() {
			So(c.IsGreetingWithName("Hi, I am John Smith"), ShouldBeTrue)
			So(c.IsGreetingWithName("hello my name is Jane"), ShouldBeTrue)
			So(c.IsGreetingWithName("Hi, I am feeling sick"), ShouldBeFalse)
			So(c.IsGreetingWithName("I am John Smith"), ShouldBeFalse)
		})

		Convey("Meta questions are detected", func() {
			So(c.IsMetaQuestion("What did I just ask?"), ShouldBeTrue)
			So(c.IsMetaQuestion("What have we discussed so far"), ShouldBeTrue)
			So(c.IsMetaQuestion("What should I eat?"), ShouldBeFalse)
		})

		Convey("Analyze profiles an utterance", func() {
			a := c.Analyze("Okay")
			So(a.Acknowledgment, ShouldBeTrue)
			So(a.MedicalConcern, ShouldBeFalse)

			a = c.Analyze("not good, can I eat bananas?")
			So(a.Negative, ShouldBeTrue)
			So(a.Diet, ShouldBeTrue)
			So(a.Question, ShouldBeTrue)
		})
	})
}

func TestGuidance(t *testing.T) {
	Convey("Guidance depends on phase and analysis", t, func() {
		So(Guidance(model.PhasePostGreeting, Analysis{Acknowledgment: true}), ShouldStartWith, "The patient acknowledged your greeting")
		So(Guidance(model.PhasePostGreeting, Analysis{Negative: true}), ShouldStartWith, "The patient indicated they're not doing well")
		So(Guidance(model.PhaseOngoing, Analysis{Acknowledgment: true}), ShouldStartWith, "The patient is acknowledging")
		So(Guidance(model.PhaseOngoing, Analysis{Medication: true, Diet: true}), ShouldStartWith, "Focus on medication")
		So(Guidance(model.PhaseOngoing, Analysis{Diet: true}), ShouldStartWith, "Focus on dietary")
		So(Guidance(model.PhaseInitial, Analysis{Acknowledgment: true}), ShouldBeEmpty)
	})
}
